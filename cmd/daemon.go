package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/calsnap/internal/adapters/daemonlock"
	"github.com/bnema/calsnap/internal/adapters/httpapi"
	"github.com/bnema/calsnap/internal/ports"
)

type logLevel int

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelError
)

func parseLogLevel(s string) logLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logLevelDebug
	case "info":
		return logLevelInfo
	case "warn", "warning":
		return logLevelWarn
	case "error":
		return logLevelError
	default:
		return logLevelInfo
	}
}

var errIdleExit = errors.New("daemon idle")

// daemon keeps every stored polling session moving and follows changes made
// by other calsnap processes through the store's change feed.
type daemon struct {
	app    *app
	logger *log.Logger
	level  logLevel
}

func newDaemonCmd(provider *appProvider) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Poll sessions in the background and serve the local API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{daemon: true})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				app.cfg.Daemon.Listen = listen
			}

			d := &daemon{
				app:    app,
				logger: log.New(cmd.ErrOrStderr(), "", 0),
				level:  parseLogLevel(app.cfg.Log.Level),
			}
			return d.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override daemon.listen (empty disables the HTTP API)")

	return cmd
}

func (d *daemon) run(ctx context.Context) error {
	cfg := d.app.cfg

	lock := daemonlock.New(cfg.Daemon.LockFile)
	if err := lock.TryLock(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.log(logLevelWarn, "unlock: %v", err)
		}
	}()

	recovered, err := d.app.controller.Recover(ctx)
	if err != nil {
		d.log(logLevelWarn, "recover: %v", err)
	}
	d.log(logLevelInfo, "started recovered=%d store=%s", recovered, cfg.Store.Backend)

	changes, err := d.app.kv.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch store: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.syncLoop(gctx, changes)
		return nil
	})

	if cfg.Daemon.Listen != "" {
		server := httpapi.New(d.app.controller, httpapi.Options{
			Logger:  d.app.logger,
			Metrics: d.app.metrics.Handler(),
		})
		g.Go(func() error {
			d.log(logLevelInfo, "listening addr=%s", cfg.Daemon.Listen)
			return server.Run(gctx, cfg.Daemon.Listen)
		})
	}

	if cfg.Daemon.ExitWhenIdle {
		g.Go(func() error {
			if err := d.app.keepalive.WaitIdle(gctx, cfg.Daemon.IdleGrace); err != nil {
				return nil
			}
			d.log(logLevelInfo, "idle for %s, exiting", cfg.Daemon.IdleGrace)
			return errIdleExit
		})
	}

	err = g.Wait()
	d.app.scheduler.StopAll()
	d.app.scheduler.Wait()
	d.log(logLevelInfo, "stopped")

	if err == nil || errors.Is(err, errIdleExit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// syncLoop reconciles polling after session writes from other processes.
// Bursts of changes collapse into a single sync.
func (d *daemon) syncLoop(ctx context.Context, changes <-chan ports.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			relevant := d.relevant(change)
			for drained := false; !drained; {
				select {
				case next, ok := <-changes:
					if !ok {
						drained = true
						break
					}
					relevant = relevant || d.relevant(next)
				default:
					drained = true
				}
			}
			if !relevant {
				continue
			}

			d.log(logLevelDebug, "sync key=%s op=%s", change.Key, change.Op)
			if err := d.app.controller.Sync(ctx); err != nil {
				d.log(logLevelWarn, "sync: %v", err)
			}
		}
	}
}

func (d *daemon) relevant(change ports.Change) bool {
	return change.Key == d.app.keys.Sessions || change.Key == d.app.keys.NotificationQueue
}

func (d *daemon) log(level logLevel, format string, args ...any) {
	if level < d.level {
		return
	}
	levelStr := "INFO"
	switch level {
	case logLevelDebug:
		levelStr = "DEBUG"
	case logLevelWarn:
		levelStr = "WARN"
	case logLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	d.logger.Printf("%s %s daemon: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
