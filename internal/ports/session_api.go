package ports

import (
	"context"

	"github.com/bnema/calsnap/internal/domain"
)

type Content struct {
	Text      string
	URL       string
	FileName  string
	MimeType  string
	Data      []byte
	InputType domain.InputType
}

// RemoteStatus is the status payload of the extraction service. Status
// values other than processed and error are non-terminal.
type RemoteStatus struct {
	Status       string
	Title        string
	Icon         string
	ErrorMessage string
}

type RemoteEvents struct {
	Events []domain.Event
	Count  int
}

type SessionAPI interface {
	CreateSession(ctx context.Context, content Content) (domain.SessionID, error)
	GetSessionStatus(ctx context.Context, id domain.SessionID) (RemoteStatus, error)
	GetSessionEvents(ctx context.Context, id domain.SessionID) (RemoteEvents, error)
	PushEvents(ctx context.Context, id domain.SessionID, eventIDs []string) error
}
