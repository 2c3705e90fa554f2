// Package notify delivers session outcomes to the user's desktop.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const appName = "calsnap"

var ErrUnsupportedPlatform = errors.New("desktop notifications are not supported on this platform")

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Desktop posts notifications through osascript on macOS and notify-send
// elsewhere.
type Desktop struct {
	goos string
	run  runFunc
}

var _ ports.Notifier = (*Desktop)(nil)

func NewDesktop() *Desktop {
	return &Desktop{goos: runtime.GOOS, run: runCommand}
}

func (d *Desktop) Notify(ctx context.Context, notification ports.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, args, err := d.command(notification)
	if err != nil {
		return err
	}
	if out, err := d.run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *Desktop) command(notification ports.Notification) (string, []string, error) {
	switch d.goos {
	case "darwin":
		script := fmt.Sprintf(
			`display notification "%s" with title "%s" sound name "default"`,
			escapeAppleScript(notification.Message),
			escapeAppleScript(notification.Title),
		)
		return "osascript", []string{"-e", script}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=" + appName}
		// Notification daemons replace an entry carrying the same tag, so a
		// repeated notification for one session does not stack.
		if notification.ID != "" {
			args = append(args, "--hint=string:x-canonical-private-synchronous:"+notification.ID)
		}
		args = append(args, notification.Title, notification.Message)
		return "notify-send", args, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, d.goos)
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Opener surfaces a session by opening its page in the default browser.
type Opener struct {
	// URLFormat receives the session id through %s.
	URLFormat string
	goos      string
	run       runFunc
}

var _ ports.Surfacer = (*Opener)(nil)

func NewOpener(urlFormat string) *Opener {
	return &Opener{URLFormat: urlFormat, goos: runtime.GOOS, run: runCommand}
}

func (o *Opener) Surface(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(o.URLFormat) == "" {
		return nil
	}

	target := fmt.Sprintf(o.URLFormat, id)
	name := "xdg-open"
	if o.goos == "darwin" {
		name = "open"
	}
	if out, err := o.run(ctx, name, target); err != nil {
		return fmt.Errorf("open %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}
