package application

import "github.com/bnema/calsnap/internal/domain"

// Overview is a consistent-enough snapshot for list views and the control API.
type Overview struct {
	Records []domain.SessionRecord
	Queue   []domain.SessionID
	Badge   domain.Badge
	Active  []domain.SessionID
}

// Pending returns the queued records in queue order, skipping ids whose
// record has been evicted.
func (o Overview) Pending() []domain.SessionRecord {
	byID := make(map[domain.SessionID]domain.SessionRecord, len(o.Records))
	for _, record := range o.Records {
		byID[record.ID] = record
	}

	pending := make([]domain.SessionRecord, 0, len(o.Queue))
	for _, id := range o.Queue {
		if record, ok := byID[id]; ok {
			pending = append(pending, record)
		}
	}
	return pending
}
