package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const watchBuffer = 16

var _ ports.KeyValueStore = (*Store)(nil)

// Store keeps values in process memory. It does not survive restarts and is
// meant for tests and throwaway runs.
type Store struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[chan ports.Change]struct{}
}

func New() *Store {
	return &Store{
		values:   make(map[string][]byte),
		watchers: make(map[chan ports.Change]struct{}),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, key)
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	s.broadcastLocked(ports.Change{Key: key, Op: ports.ChangeSet})
	return nil
}

func (s *Store) Update(ctx context.Context, key string, fn ports.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.values[key]
	next, write, err := fn(append([]byte(nil), current...), found)
	if err != nil || !write {
		return err
	}

	s.values[key] = append([]byte(nil), next...)
	s.broadcastLocked(ports.Change{Key: key, Op: ports.ChangeSet})
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	s.broadcastLocked(ports.Change{Key: key, Op: ports.ChangeRemove})
	return nil
}

func (s *Store) Watch(ctx context.Context) (<-chan ports.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan ports.Change, watchBuffer)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// broadcastLocked drops the change for watchers whose buffer is full; they
// will still see the next one.
func (s *Store) broadcastLocked(change ports.Change) {
	for ch := range s.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}
