package ports

import (
	"context"

	"github.com/bnema/calsnap/internal/domain"
)

type Notification struct {
	ID        string
	SessionID domain.SessionID
	Title     string
	Message   string
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Surfacer brings the session UI to the foreground. Best effort only.
type Surfacer interface {
	Surface(ctx context.Context, id domain.SessionID) error
}

type BadgeRenderer interface {
	Render(ctx context.Context, badge domain.Badge) error
}

// Keepalive keeps the host process from going idle while polling is active.
type Keepalive interface {
	Acquire()
	Release()
}
