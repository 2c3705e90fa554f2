package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chainstore "github.com/bnema/calsnap/internal/adapters/credentials/chain"
	credfile "github.com/bnema/calsnap/internal/adapters/credentials/file"
	credpass "github.com/bnema/calsnap/internal/adapters/credentials/pass"
	"github.com/bnema/calsnap/internal/adapters/keepalive"
	filekv "github.com/bnema/calsnap/internal/adapters/kv/file"
	memorykv "github.com/bnema/calsnap/internal/adapters/kv/memory"
	rediskv "github.com/bnema/calsnap/internal/adapters/kv/redis"
	"github.com/bnema/calsnap/internal/adapters/notify"
	"github.com/bnema/calsnap/internal/adapters/remote"
	badgerender "github.com/bnema/calsnap/internal/adapters/render/badge"
	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/config"
	"github.com/bnema/calsnap/internal/metrics"
	"github.com/bnema/calsnap/internal/ports"
)

type app struct {
	cfg        config.Config
	logger     *log.Logger
	kv         ports.KeyValueStore
	keys       application.Keys
	controller *application.Controller
	scheduler  *application.PollScheduler
	badge      *application.BadgeService
	guard      *application.CredentialGuard
	keepalive  *keepalive.Guard
	metrics    *metrics.Recorder
	clock      ports.Clock
	closers    []func() error
}

type wireOptions struct {
	// daemon adds the terminal badge renderer on out.
	daemon bool
	out    io.Writer
	errOut io.Writer
	// httpClient is used for the remote API; nil means http.DefaultClient.
	httpClient *http.Client
}

// appProvider wires the app on first use so persistent flags are parsed
// before configuration is loaded.
type appProvider struct {
	configFile   string
	storeBackend string

	app *app
}

func (p *appProvider) get(cmd *cobra.Command, opts wireOptions) (*app, error) {
	if p.app != nil {
		return p.app, nil
	}

	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.out == nil {
		opts.out = cmd.OutOrStdout()
	}
	if opts.errOut == nil {
		opts.errOut = cmd.ErrOrStderr()
	}

	a, err := wireApp(cmd.Context(), cfg, opts)
	if err != nil {
		return nil, err
	}
	p.app = a
	return a, nil
}

func (p *appProvider) loadConfig() (config.Config, error) {
	v := viper.New()
	if p.configFile != "" {
		v.SetConfigFile(p.configFile)
	}
	if p.storeBackend != "" {
		v.Set("store.backend", p.storeBackend)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (p *appProvider) Close() error {
	if p.app == nil {
		return nil
	}
	err := p.app.Close()
	p.app = nil
	return err
}

func wireApp(ctx context.Context, cfg config.Config, opts wireOptions) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	clock := ports.SystemClock{}
	logger := newComponentLogger(opts.errOut, cfg.Log.Level)
	a := &app{cfg: cfg, logger: logger, clock: clock, keys: application.NewKeys(cfg.Store.Namespace)}

	kv, err := openStore(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}
	a.kv = kv

	credentials, err := openCredentials(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.guard = application.NewCredentialGuard(credentials, cfg.Auth.CredentialKey, clock)

	api := &remote.Client{
		BaseURL:        cfg.API.BaseURL,
		HTTPClient:     opts.httpClient,
		RequestTimeout: cfg.API.RequestTimeout,
		Tokens:         a.guard,
	}

	a.metrics = metrics.NewRecorder()
	a.badge = application.NewBadgeService(kv, a.keys, badgeRenderer(cfg, opts), clock, application.BadgeOptions{
		FeedbackWindow: cfg.Notifications.FeedbackWindow,
		Logger:         logger,
		Observer:       a.metrics,
	})
	store := application.NewSessionStore(kv, a.keys, cfg.Sessions.MaxRecords, a.badge)
	queue := application.NewNotificationQueue(kv, a.keys, a.badge)

	notifier, surfacer := notifiers(cfg, logger)
	lifecycle := application.NewSessionLifecycle(store, queue, api, notifier, surfacer, application.LifecycleOptions{
		MaxDuration: cfg.Poll.MaxDuration,
		Logger:      logger,
		Observer:    a.metrics,
	})

	a.keepalive = keepalive.NewGuard(clock)
	a.scheduler = application.NewPollScheduler(lifecycle.HandleTick, a.keepalive, clock, application.SchedulerOptions{
		Interval: cfg.Poll.Interval,
		Logger:   logger,
		Observer: a.metrics,
	})

	a.controller = application.NewController(application.ControllerDeps{
		Store:     store,
		Queue:     queue,
		Badge:     a.badge,
		Scheduler: a.scheduler,
		API:       api,
		Guard:     a.guard,
		Clock:     clock,
		Logger:    logger,
	})

	return a, nil
}

// Close stops polling owned by this process and releases the store.
func (a *app) Close() error {
	if a.scheduler != nil {
		a.scheduler.StopAll()
		a.scheduler.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config, logger *log.Logger, a *app) (ports.KeyValueStore, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return memorykv.New(), nil
	case config.StoreBackendRedis:
		store, err := rediskv.Open(ctx, rediskv.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Store.Namespace + ":changes",
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("wire redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		store, err := filekv.New(cfg.Store.Path, filekv.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("wire file store: %w", err)
		}
		return store, nil
	}
}

func openCredentials(cfg config.Config) (ports.CredentialStore, error) {
	switch cfg.Auth.Backend {
	case config.AuthBackendFile:
		return credfile.NewStore(cfg.Auth.SecretsDir), nil
	case config.AuthBackendPass:
		return credpass.NewStore(), nil
	default:
		store, err := chainstore.NewPassFirstWithFileFallback(cfg.Auth.SecretsDir)
		if err != nil {
			return nil, fmt.Errorf("wire credential store chain: %w", err)
		}
		return store, nil
	}
}

func badgeRenderer(cfg config.Config, opts wireOptions) ports.BadgeRenderer {
	var renderers badgerender.Multi
	if opts.daemon && opts.out != nil {
		renderers = append(renderers, badgerender.NewTerminal(opts.out))
	}
	if path := strings.TrimSpace(cfg.Badge.StatusFile); path != "" {
		renderers = append(renderers, badgerender.NewStatusFile(path))
	}
	if len(renderers) == 0 {
		return nil
	}
	return renderers
}

func notifiers(cfg config.Config, logger *log.Logger) (ports.Notifier, ports.Surfacer) {
	var surfacer ports.Surfacer = notify.Nop{}
	if strings.TrimSpace(cfg.Notify.OpenURL) != "" {
		surfacer = notify.NewOpener(cfg.Notify.OpenURL)
	}

	switch cfg.Notify.Backend {
	case config.NotifyBackendLog:
		return notify.NewLog(logger), surfacer
	case config.NotifyBackendNone:
		return notify.Nop{}, notify.Nop{}
	default:
		return notify.NewDesktop(), surfacer
	}
}

func newComponentLogger(out io.Writer, level string) *log.Logger {
	if out == nil || parseLogLevel(level) > logLevelWarn {
		return log.New(io.Discard, "", 0)
	}
	return log.New(out, "", log.LstdFlags)
}
