package domain

import (
	"encoding/json"
	"time"
)

// MaxEventSummaries bounds SessionRecord.EventSummaries.
const MaxEventSummaries = 3

type SessionID string

type Status string

const (
	StatusPolling   Status = "polling"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions can happen from s.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusError
}

type InputType string

const (
	InputTypeText  InputType = "text"
	InputTypeImage InputType = "image"
	InputTypeFile  InputType = "file"
	InputTypePage  InputType = "page"
)

func (t InputType) Valid() bool {
	switch t {
	case InputTypeText, InputTypeImage, InputTypeFile, InputTypePage:
		return true
	default:
		return false
	}
}

type Event struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title,omitempty"`
	Start       string          `json:"start,omitempty"`
	End         string          `json:"end,omitempty"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Summary is the short display line used for EventSummaries.
func (e Event) Summary() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Description
}

type SessionRecord struct {
	ID              SessionID
	Status          Status
	Title           string
	Icon            string
	EventCount      int
	EventSummaries  []string
	Events          []Event
	AddedToCalendar bool
	CreatedAt       time.Time
	DismissedAt     *time.Time
	InputType       InputType
	ErrorMessage    string
}

func (r SessionRecord) Dismissed() bool {
	return r.DismissedAt != nil
}

// Expired reports whether the record's outcome fell out of the feedback window.
func (r SessionRecord) Expired(now time.Time, window time.Duration) bool {
	if window <= 0 || r.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(r.CreatedAt) > window
}

// ErrorClass reports whether a terminal outcome should be shown as a failure.
// A processed session that extracted nothing counts as one.
func (r SessionRecord) ErrorClass() bool {
	switch r.Status {
	case StatusError:
		return true
	case StatusProcessed:
		return r.EventCount == 0
	default:
		return false
	}
}

// EventIDs returns the ids of events that can be pushed externally.
func (r SessionRecord) EventIDs() []string {
	ids := make([]string, 0, len(r.Events))
	for _, event := range r.Events {
		if event.ID != "" {
			ids = append(ids, event.ID)
		}
	}
	return ids
}

func SummariesOf(events []Event) []string {
	summaries := make([]string, 0, MaxEventSummaries)
	for _, event := range events {
		if len(summaries) == MaxEventSummaries {
			break
		}
		summaries = append(summaries, event.Summary())
	}
	return summaries
}
