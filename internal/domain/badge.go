package domain

import (
	"fmt"
	"time"
)

type BadgeKind string

const (
	BadgeEmpty   BadgeKind = "empty"
	BadgeSpinner BadgeKind = "spinner"
	BadgeCount   BadgeKind = "count"
	BadgeError   BadgeKind = "error"
)

type Badge struct {
	Kind  BadgeKind `json:"kind"`
	Count int       `json:"count,omitempty"`
}

func (b Badge) String() string {
	switch b.Kind {
	case BadgeSpinner:
		return "…"
	case BadgeCount:
		return fmt.Sprintf("%d", b.Count)
	case BadgeError:
		return "!"
	default:
		return ""
	}
}

// DeriveBadge computes the badge from the stored records and the
// notification queue. Priority: any polling record shows a spinner, then
// any failed outcome shows an error, then the total event count, else empty.
func DeriveBadge(records []SessionRecord, queue []SessionID, now time.Time, feedbackWindow time.Duration) Badge {
	byID := make(map[SessionID]SessionRecord, len(records))
	for _, record := range records {
		if record.Dismissed() {
			continue
		}
		if record.Status == StatusPolling {
			return Badge{Kind: BadgeSpinner}
		}
		byID[record.ID] = record
	}

	total := 0
	failed := false
	for _, id := range queue {
		record, ok := byID[id]
		if !ok || record.Expired(now, feedbackWindow) {
			continue
		}

		switch {
		case record.ErrorClass():
			failed = true
		case record.Status == StatusProcessed:
			total += record.EventCount
		}
	}

	if failed {
		return Badge{Kind: BadgeError}
	}
	if total > 0 {
		return Badge{Kind: BadgeCount, Count: total}
	}

	return Badge{Kind: BadgeEmpty}
}
