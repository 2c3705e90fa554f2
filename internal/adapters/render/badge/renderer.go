package badge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// Terminal prints the badge whenever it changes.
type Terminal struct {
	out    io.Writer
	styles styles

	mu   sync.Mutex
	last *domain.Badge
}

var _ ports.BadgeRenderer = (*Terminal)(nil)

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, styles: newStyles()}
}

func (t *Terminal) Render(ctx context.Context, b domain.Badge) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last != nil && *t.last == b {
		return nil
	}
	if _, err := fmt.Fprintln(t.out, renderBadge(b, RenderOptions{}, t.styles)); err != nil {
		return fmt.Errorf("write badge: %w", err)
	}
	t.last = &b
	return nil
}

type statusFileSchema struct {
	Text    string `json:"text"`
	Class   string `json:"class"`
	Tooltip string `json:"tooltip"`
	Count   int    `json:"count"`
}

// StatusFile keeps the badge in a small JSON file that status bars such as
// waybar or i3blocks can poll.
type StatusFile struct {
	path string
	mu   sync.Mutex
}

var _ ports.BadgeRenderer = (*StatusFile)(nil)

func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

func (f *StatusFile) Render(ctx context.Context, b domain.Badge) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(statusFileSchema{
		Text:    b.String(),
		Class:   string(b.Kind),
		Tooltip: tooltip(b),
		Count:   b.Count,
	})
	if err != nil {
		return fmt.Errorf("encode badge: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return writeFileAtomic(f.path, append(encoded, '\n'))
}

func tooltip(b domain.Badge) string {
	switch b.Kind {
	case domain.BadgeSpinner:
		return "Extracting events…"
	case domain.BadgeError:
		return "A session needs attention"
	case domain.BadgeCount:
		if b.Count == 1 {
			return "1 new event"
		}
		return fmt.Sprintf("%d new events", b.Count)
	default:
		return "No new events"
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create badge directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".badge-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp badge file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp badge file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp badge file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp badge file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace badge file: %w", err)
	}

	return nil
}

// Multi fans a badge out to several renderers and reports every failure.
type Multi []ports.BadgeRenderer

var _ ports.BadgeRenderer = Multi(nil)

func (m Multi) Render(ctx context.Context, b domain.Badge) error {
	var errs []error
	for _, renderer := range m {
		if err := renderer.Render(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
