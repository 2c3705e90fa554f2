package file

import (
	"fmt"
	"time"
)

const currentSchemaVersion = 1

type storeSchema struct {
	Version int           `toml:"version"`
	Entries []entrySchema `toml:"entries"`
}

type entrySchema struct {
	Key       string `toml:"key"`
	Value     string `toml:"value"`
	UpdatedAt string `toml:"updated_at,omitempty"`
}

func (s *storeSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s storeSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported store schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func (s storeSchema) values() map[string]string {
	values := make(map[string]string, len(s.Entries))
	for _, entry := range s.Entries {
		values[entry.Key] = entry.Value
	}
	return values
}

func (s storeSchema) get(key string) ([]byte, bool) {
	for _, entry := range s.Entries {
		if entry.Key == key {
			return []byte(entry.Value), true
		}
	}
	return nil, false
}

func (s *storeSchema) set(key, value string, now time.Time) {
	updatedAt := now.UTC().Format(time.RFC3339)
	for i := range s.Entries {
		if s.Entries[i].Key == key {
			s.Entries[i].Value = value
			s.Entries[i].UpdatedAt = updatedAt
			return
		}
	}
	s.Entries = append(s.Entries, entrySchema{Key: key, Value: value, UpdatedAt: updatedAt})
}

func (s *storeSchema) remove(key string) bool {
	for i := range s.Entries {
		if s.Entries[i].Key == key {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return true
		}
	}
	return false
}
