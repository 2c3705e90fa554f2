package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFreezesOutcomeOnceTerminal(t *testing.T) {
	record := SessionRecord{ID: "s1", Status: StatusPolling}

	record, accepted := record.Apply(ErrorPatch("timed out"))
	require.True(t, accepted)
	assert.Equal(t, StatusError, record.Status)

	title := "Late title"
	late := ProcessedPatch([]Event{{Title: "A"}}, 1)
	late.Title = &title
	record, accepted = record.Apply(late)

	assert.False(t, accepted)
	assert.Equal(t, StatusError, record.Status)
	assert.Equal(t, "timed out", record.ErrorMessage)
	assert.Zero(t, record.EventCount)
	assert.Empty(t, record.Events)
	assert.Equal(t, "Late title", record.Title)
}

func TestApplyTruncatesSummaries(t *testing.T) {
	events := []Event{{Title: "a"}, {Title: "b"}, {Description: "c"}, {Title: "d"}}

	record, accepted := SessionRecord{Status: StatusPolling}.Apply(ProcessedPatch(events, 4))
	require.True(t, accepted)
	assert.Equal(t, []string{"a", "b", "c"}, record.EventSummaries)
	assert.Len(t, record.Events, 4)

	long := Patch{EventSummaries: []string{"1", "2", "3", "4", "5"}}
	record, _ = SessionRecord{Status: StatusPolling}.Apply(long)
	assert.Len(t, record.EventSummaries, MaxEventSummaries)
}

func TestApplyDismissCopiesTimestamp(t *testing.T) {
	at := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	record, _ := SessionRecord{Status: StatusProcessed}.Apply(Patch{DismissedAt: &at})

	at = at.Add(time.Hour)
	require.NotNil(t, record.DismissedAt)
	assert.Equal(t, 12, record.DismissedAt.Hour())
	assert.True(t, record.Dismissed())
}

func TestSessionRecordExpired(t *testing.T) {
	created := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	record := SessionRecord{CreatedAt: created}

	assert.False(t, record.Expired(created.Add(24*time.Hour), 24*time.Hour))
	assert.True(t, record.Expired(created.Add(24*time.Hour+time.Millisecond), 24*time.Hour))
	assert.False(t, record.Expired(created.Add(48*time.Hour), 0))
	assert.False(t, SessionRecord{}.Expired(created, time.Hour))
}

func TestInputTypeValid(t *testing.T) {
	for _, valid := range []InputType{InputTypeText, InputTypeImage, InputTypeFile, InputTypePage} {
		assert.True(t, valid.Valid(), valid)
	}
	assert.False(t, InputType("video").Valid())
	assert.False(t, InputType("").Valid())
}

func TestSessionRecordEventIDsSkipsUnidentifiedEvents(t *testing.T) {
	record := SessionRecord{Events: []Event{{ID: "e1"}, {Title: "no id"}, {ID: "e2"}}}
	assert.Equal(t, []string{"e1", "e2"}, record.EventIDs())
}
