package application

import (
	"context"
	"fmt"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const DefaultMaxRecords = 10

type badgeRefresher interface {
	Refresh(ctx context.Context) (domain.Badge, error)
}

// PatchResult describes what a Patch did to the stored record.
type PatchResult struct {
	Found bool
	// Transitioned is true only for the patch that moved the record from
	// polling into a terminal status.
	Transitioned bool
	Record       domain.SessionRecord
}

// SessionStore keeps a bounded, most-recent-first list of session records.
// Every write is a single atomic update of the stored list, so processes
// sharing the backend never overwrite each other's changes.
type SessionStore struct {
	kv         ports.KeyValueStore
	key        string
	maxRecords int
	badge      badgeRefresher
}

func NewSessionStore(kv ports.KeyValueStore, keys Keys, maxRecords int, badge badgeRefresher) *SessionStore {
	if maxRecords < 1 {
		maxRecords = DefaultMaxRecords
	}

	return &SessionStore{
		kv:         kv,
		key:        keys.Sessions,
		maxRecords: maxRecords,
		badge:      badge,
	}
}

func (s *SessionStore) Upsert(ctx context.Context, record domain.SessionRecord) error {
	if err := s.upsert(ctx, record); err != nil {
		return err
	}

	return s.refreshBadge(ctx)
}

func (s *SessionStore) upsert(ctx context.Context, record domain.SessionRecord) error {
	return updateRecords(ctx, s.kv, s.key, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool, error) {
		updated := make([]domain.SessionRecord, 0, len(records)+1)
		updated = append(updated, record)
		for _, existing := range records {
			if existing.ID == record.ID {
				continue
			}
			updated = append(updated, existing)
		}
		if len(updated) > s.maxRecords {
			updated = updated[:s.maxRecords]
		}
		return updated, true, nil
	})
}

// Patch merges fields into an existing record. A missing record is not an
// error: it yields a result with Found=false and nothing is written.
// When the write succeeds but the badge refresh fails, the result is still
// populated alongside the error.
func (s *SessionStore) Patch(ctx context.Context, id domain.SessionID, patch domain.Patch) (PatchResult, error) {
	result, err := s.patch(ctx, id, patch)
	if err != nil || !result.Found {
		return result, err
	}

	return result, s.refreshBadge(ctx)
}

func (s *SessionStore) patch(ctx context.Context, id domain.SessionID, patch domain.Patch) (PatchResult, error) {
	var result PatchResult
	err := updateRecords(ctx, s.kv, s.key, func(records []domain.SessionRecord) ([]domain.SessionRecord, bool, error) {
		// The store may retry this function, so the result is rebuilt each run.
		result = PatchResult{}
		for i, existing := range records {
			if existing.ID != id {
				continue
			}

			updated, outcomeAccepted := existing.Apply(patch)
			records[i] = updated
			result = PatchResult{
				Found:        true,
				Transitioned: outcomeAccepted && patch.Terminates(),
				Record:       updated,
			}
			return records, true, nil
		}
		return nil, false, nil
	})
	if err != nil {
		return PatchResult{}, err
	}

	return result, nil
}

func (s *SessionStore) List(ctx context.Context) ([]domain.SessionRecord, error) {
	return loadRecords(ctx, s.kv, s.key)
}

func (s *SessionStore) Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	for _, record := range records {
		if record.ID == id {
			return record, nil
		}
	}

	return domain.SessionRecord{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

func (s *SessionStore) refreshBadge(ctx context.Context) error {
	if s.badge == nil {
		return nil
	}
	if _, err := s.badge.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh badge: %w", err)
	}
	return nil
}
