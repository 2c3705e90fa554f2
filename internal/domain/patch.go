package domain

import "time"

// Patch is a partial SessionRecord update. Nil fields are left unchanged.
type Patch struct {
	Status          *Status
	Title           *string
	Icon            *string
	EventCount      *int
	EventSummaries  []string
	Events          []Event
	AddedToCalendar *bool
	DismissedAt     *time.Time
	ErrorMessage    *string
}

// Terminates reports whether the patch moves a record into a terminal status.
func (p Patch) Terminates() bool {
	return p.Status != nil && p.Status.Terminal()
}

// Apply merges p into r. Once r is terminal, outcome fields (status, events,
// error message) are frozen; display metadata and user flags still apply.
// The returned bool reports whether the outcome fields were accepted.
func (r SessionRecord) Apply(p Patch) (SessionRecord, bool) {
	outcomeAccepted := !r.Status.Terminal()

	if outcomeAccepted {
		if p.Status != nil {
			r.Status = *p.Status
		}
		if p.EventCount != nil {
			r.EventCount = *p.EventCount
		}
		if p.EventSummaries != nil {
			r.EventSummaries = truncateSummaries(p.EventSummaries)
		}
		if p.Events != nil {
			r.Events = p.Events
		}
		if p.ErrorMessage != nil {
			r.ErrorMessage = *p.ErrorMessage
		}
	}

	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Icon != nil {
		r.Icon = *p.Icon
	}
	if p.AddedToCalendar != nil {
		r.AddedToCalendar = *p.AddedToCalendar
	}
	if p.DismissedAt != nil {
		dismissedAt := *p.DismissedAt
		r.DismissedAt = &dismissedAt
	}

	return r, outcomeAccepted
}

func truncateSummaries(summaries []string) []string {
	if len(summaries) <= MaxEventSummaries {
		return summaries
	}
	return summaries[:MaxEventSummaries]
}

func ProcessedPatch(events []Event, count int) Patch {
	status := StatusProcessed
	return Patch{
		Status:         &status,
		EventCount:     &count,
		EventSummaries: SummariesOf(events),
		Events:         events,
	}
}

func ErrorPatch(message string) Patch {
	status := StatusError
	return Patch{
		Status:       &status,
		ErrorMessage: &message,
	}
}
