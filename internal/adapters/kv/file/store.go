package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const (
	storeFileMode   = 0o600
	storeDirMode    = 0o700
	tempFilePattern = ".store-*.toml.tmp"
	watchBuffer     = 16
)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.KeyValueStore = (*Store)(nil)

// Store keeps every key in one TOML file that is replaced atomically on each
// write. Stores opened on the same path within a process share a lock.
type Store struct {
	path   string
	mu     *sync.RWMutex
	clock  ports.Clock
	logger *log.Logger
}

type Option func(*Store)

func WithClock(clock ports.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	store := &Store{
		path:   absPath,
		mu:     lockForPath(absPath),
		clock:  ports.SystemClock{},
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	value, ok := file.get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, key, func([]byte, bool) ([]byte, bool, error) {
		return value, true, nil
	})
}

// Update holds the cross-process lock from the read of the file until the
// rename of its replacement.
func (s *Store) Update(ctx context.Context, key string, fn ports.UpdateFunc) error {
	return s.modify(ctx, func(file *storeSchema) (bool, error) {
		current, found := file.get(key)
		next, write, err := fn(current, found)
		if err != nil || !write {
			return false, err
		}
		file.set(key, string(next), s.clock.Now())
		return true, nil
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.modify(ctx, func(file *storeSchema) (bool, error) {
		return file.remove(key), nil
	})
}

func (s *Store) modify(ctx context.Context, change func(*storeSchema) (bool, error)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := acquireFileLock(ctx, s.path)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	changed, err := change(&file)
	if err != nil || !changed {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

// Watch reports keys whose value changed on disk, whichever process wrote
// them. The directory is watched rather than the file because writes replace
// the file by rename.
func (s *Store) Watch(ctx context.Context) (<-chan ports.Change, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch store directory: %w", err)
	}

	last, err := s.snapshot()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	changes := make(chan ports.Change, watchBuffer)
	go s.watchLoop(ctx, watcher, last, changes)

	return changes, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, last map[string]string, changes chan<- ports.Change) {
	defer close(changes)
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			current, err := s.snapshot()
			if err != nil {
				s.logger.Printf("kv: reload %s after %s: %v", s.path, event.Op, err)
				continue
			}
			for _, change := range diff(last, current) {
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			}
			last = current
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("kv: fsnotify error: %v", err)
		}
	}
}

func (s *Store) snapshot() (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}
	return file.values(), nil
}

func diff(before, after map[string]string) []ports.Change {
	var changes []ports.Change
	for key, value := range after {
		if previous, ok := before[key]; !ok || previous != value {
			changes = append(changes, ports.Change{Key: key, Op: ports.ChangeSet})
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			changes = append(changes, ports.Change{Key: key, Op: ports.ChangeRemove})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

func (s *Store) readSchema() (storeSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storeSchema{Version: currentSchemaVersion}, nil
		}
		return storeSchema{}, fmt.Errorf("read store file: %w", err)
	}

	var file storeSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return storeSchema{}, fmt.Errorf("decode store file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return storeSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file storeSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp store file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
