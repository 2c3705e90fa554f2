package notify

import (
	"context"
	"io"
	"log"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// Log writes notifications to a logger. Used headless and with notify.backend=log.
type Log struct {
	logger *log.Logger
}

var (
	_ ports.Notifier = (*Log)(nil)
	_ ports.Surfacer = (*Log)(nil)
)

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, notification ports.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Printf("notify: [%s] %s: %s", notification.ID, notification.Title, notification.Message)
	return nil
}

func (l *Log) Surface(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Printf("notify: session %s is ready", id)
	return nil
}

type Nop struct{}

var (
	_ ports.Notifier = Nop{}
	_ ports.Surfacer = Nop{}
)

func (Nop) Notify(context.Context, ports.Notification) error { return nil }

func (Nop) Surface(context.Context, domain.SessionID) error { return nil }
