package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/calsnap/internal/adapters/daemonlock"
	badgerender "github.com/bnema/calsnap/internal/adapters/render/badge"
	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// maxUploadBytes bounds files read for image or file submissions.
const maxUploadBytes = 10 << 20

func newSubmitCmd(provider *appProvider) *cobra.Command {
	var url string
	var filePath string
	var inputType string
	var title string
	var detach bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit [text|-]",
		Short: "Submit content for event extraction",
		Long:  "Submit text (or - for stdin), a page URL or a file. Without --detach the command waits until the session settles, polling it itself unless a daemon is running; with --detach it returns at once and a daemon picks the session up.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, args, url, filePath)
			if err != nil {
				return err
			}
			content.InputType = domain.InputType(strings.ToLower(strings.TrimSpace(inputType)))

			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			daemonRunning, err := daemonlock.Held(app.cfg.Daemon.LockFile)
			if err != nil {
				app.logger.Printf("submit: check daemon lock: %v", err)
			}

			record, err := app.controller.Submit(cmd.Context(), application.SubmitCommand{
				Content:  content,
				Title:    title,
				Detached: detach || daemonRunning,
			})
			if err != nil {
				return err
			}
			if detach {
				return writeRecordOutput(cmd, record, asJSON)
			}

			wait := func(ctx context.Context) error {
				return waitForPolling(ctx, app.scheduler)
			}
			if daemonRunning {
				wait = func(ctx context.Context) error {
					return waitForSettled(ctx, app.controller, record.ID, app.cfg.Poll.Interval)
				}
			}
			if err := runWaitSpinner(cmd.Context(), cmd.ErrOrStderr(), "Extracting events...", wait); err != nil {
				return err
			}

			record, err = app.controller.Get(cmd.Context(), record.ID)
			if err != nil {
				return err
			}
			return writeRecordOutput(cmd, record, asJSON)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Page URL to extract events from")
	cmd.Flags().StringVar(&filePath, "file", "", "Image or document to extract events from")
	cmd.Flags().StringVar(&inputType, "type", "", "Input type (text|image|file|page, default: inferred)")
	cmd.Flags().StringVar(&title, "title", "", "Title shown until the service names the session")
	cmd.Flags().BoolVar(&detach, "detach", false, "Return immediately and leave polling to the daemon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.MarkFlagsMutuallyExclusive("url", "file")

	return cmd
}

func readContent(cmd *cobra.Command, args []string, url string, filePath string) (ports.Content, error) {
	var content ports.Content
	if url = strings.TrimSpace(url); url != "" {
		content.URL = url
	}

	if filePath != "" {
		data, err := readLimited(filePath)
		if err != nil {
			return ports.Content{}, err
		}
		content.FileName = filepath.Base(filePath)
		content.Data = data
		content.MimeType = http.DetectContentType(data)
	}

	if len(args) == 1 {
		text := args[0]
		if text == "-" {
			data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxUploadBytes))
			if err != nil {
				return ports.Content{}, fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		content.Text = text
	}

	return content, nil
}

func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if info.Size() > maxUploadBytes {
		return nil, fmt.Errorf("read %s: file is larger than %d bytes", path, maxUploadBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// waitForPolling blocks until this process has nothing left to poll. On
// cancellation the tasks are stopped; their records stay in polling status
// so a daemon or the next run can resume them.
func waitForPolling(ctx context.Context, scheduler *application.PollScheduler) error {
	done := make(chan struct{})
	go func() {
		scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		scheduler.StopAll()
		<-done
		return ctx.Err()
	}
}

// waitForSettled follows a session that a running daemon is polling until
// its stored record reaches a terminal status.
func waitForSettled(ctx context.Context, controller *application.Controller, id domain.SessionID, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		record, err := controller.Get(ctx, id)
		if err != nil {
			return err
		}
		if record.Status.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newSessionsCmd(provider *appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}

	cmd.AddCommand(newSessionsListCmd(provider), newSessionsShowCmd(provider))

	return cmd
}

func newSessionsListCmd(provider *appProvider) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent sessions and their outcome",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			overview, err := app.controller.Overview(cmd.Context())
			if err != nil {
				return err
			}
			return writeOverviewOutput(cmd, app, overview, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionsShowCmd(provider *appProvider) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			record, err := app.controller.Get(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			return writeRecordOutput(cmd, record, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newDismissCmd(provider *appProvider) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "dismiss [session-id...]",
		Short: "Acknowledge session outcomes and clear them from the badge",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("dismiss takes either session ids or --all")
			}
			if !all && len(args) == 0 {
				return errors.New("dismiss requires a session id or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			if all {
				dismissed, err := app.controller.DismissAll(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "dismissed %d sessions\n", dismissed)
				return err
			}

			for _, id := range args {
				if err := app.controller.Dismiss(cmd.Context(), domain.SessionID(id)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Dismiss every queued outcome")

	return cmd
}

func newPushCmd(provider *appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "push <session-id>",
		Short: "Add a processed session's events to your calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			id := domain.SessionID(args[0])
			if err := app.controller.PushEvents(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: added to calendar\n", id)
			return err
		},
	}
}

func newBadgeCmd(provider *appProvider) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Print the current badge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			badge, err := app.badge.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, badge)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), badge.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newWatchCmd(provider *appProvider) *cobra.Command {
	var untilSettled bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch sessions update live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			_, err = badgerender.RunWatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), app.controller.Overview, badgerender.WatchOptions{
				Interval:     app.cfg.Poll.Interval,
				UntilSettled: untilSettled,
				Now:          app.clock.Now,
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&untilSettled, "until-settled", false, "Exit once no session is polling")

	return cmd
}
