package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const (
	DefaultChannel    = "calsnap:changes"
	watchBuffer       = 16
	maxUpdateAttempts = 50
)

var ErrUpdateContention = errors.New("key kept changing during update")

var _ ports.KeyValueStore = (*Store)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Channel carries change events between processes sharing the server.
	Channel string
	Logger  *log.Logger
}

// Store keeps values as plain redis strings and announces every write on a
// pub/sub channel so other processes can react.
type Store struct {
	client  *goredis.Client
	channel string
	logger  *log.Logger
}

type changeMessage struct {
	Key string `json:"key"`
	Op  string `json:"op"`
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return NewWithClient(client, opts), nil
}

func NewWithClient(client *goredis.Client, opts Options) *Store {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	return &Store{client: client, channel: opts.Channel, logger: opts.Logger}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.announce(ctx, ports.Change{Key: key, Op: ports.ChangeSet})
	return nil
}

// Update runs fn under WATCH and commits in MULTI/EXEC, retrying when another
// client wrote the key in between.
func (s *Store) Update(ctx context.Context, key string, fn ports.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		wrote := false
		err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			found := true
			if errors.Is(err, goredis.Nil) {
				current, found = nil, false
			} else if err != nil {
				return err
			}

			next, write, err := fn(current, found)
			if err != nil || !write {
				return err
			}

			if _, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				return nil
			}); err != nil {
				return err
			}
			wrote = true
			return nil
		}, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update %s: %w", key, err)
		}

		if wrote {
			s.announce(ctx, ports.Change{Key: key, Op: ports.ChangeSet})
		}
		return nil
	}

	return fmt.Errorf("redis update %s: %w", key, ErrUpdateContention)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	if removed > 0 {
		s.announce(ctx, ports.Change{Key: key, Op: ports.ChangeRemove})
	}
	return nil
}

// Watch subscribes to the change channel. The subscription is confirmed
// before Watch returns, so writes made afterwards are never missed.
func (s *Store) Watch(ctx context.Context) (<-chan ports.Change, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	changes := make(chan ports.Change, watchBuffer)
	go func() {
		defer close(changes)
		defer func() { _ = pubsub.Close() }()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var decoded changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
					s.logger.Printf("kv: drop malformed change on %s: %v", s.channel, err)
					continue
				}
				select {
				case changes <- ports.Change{Key: decoded.Key, Op: ports.ChangeOp(decoded.Op)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}

// announce is best effort: the value is already stored, and watchers
// reconcile from the full state on their next change anyway.
func (s *Store) announce(ctx context.Context, change ports.Change) {
	payload, err := json.Marshal(changeMessage{Key: change.Key, Op: string(change.Op)})
	if err != nil {
		s.logger.Printf("kv: encode change for %s: %v", change.Key, err)
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Printf("kv: publish change for %s: %v", change.Key, err)
	}
}
