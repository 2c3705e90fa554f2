package ports

import "context"

type ChangeOp string

const (
	ChangeSet    ChangeOp = "set"
	ChangeRemove ChangeOp = "remove"
)

type Change struct {
	Key string
	Op  ChangeOp
}

// UpdateFunc receives the current value of a key, with found=false when it
// is missing, and returns the value to store. write=false leaves the key as
// it was.
type UpdateFunc func(current []byte, found bool) (next []byte, write bool, err error)

// KeyValueStore is durable storage that survives process restarts.
// Get returns domain.ErrKeyNotFound for missing keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Update is an atomic read-modify-write of one key. No other writer,
	// in this process or another one sharing the backend, can interleave
	// between the read fn sees and the write of its result. fn may run more
	// than once.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Watch streams changes until ctx is done, including changes made by
	// other processes sharing the same backend.
	Watch(ctx context.Context) (<-chan Change, error)
}
