package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// Keys names the two entries this package keeps in the key-value store.
type Keys struct {
	Sessions          string
	NotificationQueue string
}

func NewKeys(namespace string) Keys {
	return Keys{
		Sessions:          namespace + ":sessions",
		NotificationQueue: namespace + ":notificationQueue",
	}
}

type sessionRecordSchema struct {
	SessionID       string         `json:"sessionId"`
	Status          string         `json:"status"`
	Title           string         `json:"title,omitempty"`
	Icon            string         `json:"icon,omitempty"`
	EventCount      int            `json:"eventCount"`
	EventSummaries  []string       `json:"eventSummaries,omitempty"`
	Events          []domain.Event `json:"events,omitempty"`
	AddedToCalendar bool           `json:"addedToCalendar,omitempty"`
	CreatedAt       int64          `json:"createdAt"`
	DismissedAt     *int64         `json:"dismissedAt,omitempty"`
	InputType       string         `json:"inputType,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
}

func toRecordSchema(record domain.SessionRecord) sessionRecordSchema {
	var dismissedAt *int64
	if record.DismissedAt != nil {
		ms := record.DismissedAt.UnixMilli()
		dismissedAt = &ms
	}

	return sessionRecordSchema{
		SessionID:       string(record.ID),
		Status:          string(record.Status),
		Title:           record.Title,
		Icon:            record.Icon,
		EventCount:      record.EventCount,
		EventSummaries:  record.EventSummaries,
		Events:          record.Events,
		AddedToCalendar: record.AddedToCalendar,
		CreatedAt:       record.CreatedAt.UnixMilli(),
		DismissedAt:     dismissedAt,
		InputType:       string(record.InputType),
		ErrorMessage:    record.ErrorMessage,
	}
}

func fromRecordSchema(entry sessionRecordSchema) domain.SessionRecord {
	var dismissedAt *time.Time
	if entry.DismissedAt != nil {
		at := time.UnixMilli(*entry.DismissedAt).UTC()
		dismissedAt = &at
	}

	return domain.SessionRecord{
		ID:              domain.SessionID(entry.SessionID),
		Status:          domain.Status(entry.Status),
		Title:           entry.Title,
		Icon:            entry.Icon,
		EventCount:      entry.EventCount,
		EventSummaries:  entry.EventSummaries,
		Events:          entry.Events,
		AddedToCalendar: entry.AddedToCalendar,
		CreatedAt:       time.UnixMilli(entry.CreatedAt).UTC(),
		DismissedAt:     dismissedAt,
		InputType:       domain.InputType(entry.InputType),
		ErrorMessage:    entry.ErrorMessage,
	}
}

func loadRecords(ctx context.Context, kv ports.KeyValueStore, key string) ([]domain.SessionRecord, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session records: %w", err)
	}
	return decodeRecords(data)
}

// updateRecords applies change to the stored list in one atomic
// read-modify-write. change reports whether anything needs writing.
func updateRecords(ctx context.Context, kv ports.KeyValueStore, key string, change func([]domain.SessionRecord) ([]domain.SessionRecord, bool, error)) error {
	err := kv.Update(ctx, key, func(current []byte, _ bool) ([]byte, bool, error) {
		records, err := decodeRecords(current)
		if err != nil {
			return nil, false, err
		}

		updated, changed, err := change(records)
		if err != nil || !changed {
			return nil, false, err
		}

		data, err := encodeRecords(updated)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	})
	if err != nil {
		return fmt.Errorf("write session records: %w", err)
	}
	return nil
}

func decodeRecords(data []byte) ([]domain.SessionRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []sessionRecordSchema
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode session records: %w", err)
	}

	records := make([]domain.SessionRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, fromRecordSchema(entry))
	}

	return records, nil
}

func encodeRecords(records []domain.SessionRecord) ([]byte, error) {
	entries := make([]sessionRecordSchema, 0, len(records))
	for _, record := range records {
		entries = append(entries, toRecordSchema(record))
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode session records: %w", err)
	}
	return data, nil
}

func loadQueue(ctx context.Context, kv ports.KeyValueStore, key string) ([]domain.SessionID, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notification queue: %w", err)
	}
	return decodeQueue(data)
}

func updateQueue(ctx context.Context, kv ports.KeyValueStore, key string, change func([]domain.SessionID) ([]domain.SessionID, bool)) error {
	err := kv.Update(ctx, key, func(current []byte, _ bool) ([]byte, bool, error) {
		ids, err := decodeQueue(current)
		if err != nil {
			return nil, false, err
		}

		updated, changed := change(ids)
		if !changed {
			return nil, false, nil
		}
		if updated == nil {
			updated = []domain.SessionID{}
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return nil, false, fmt.Errorf("encode notification queue: %w", err)
		}
		return data, true, nil
	})
	if err != nil {
		return fmt.Errorf("write notification queue: %w", err)
	}
	return nil
}

func decodeQueue(data []byte) ([]domain.SessionID, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var ids []domain.SessionID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode notification queue: %w", err)
	}

	return ids, nil
}
