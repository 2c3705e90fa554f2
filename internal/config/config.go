package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = "calsnap"
	envPrefix  = "CALSNAP"
)

const (
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"

	AuthBackendChain = "chain"
	AuthBackendFile  = "file"
	AuthBackendPass  = "pass"

	NotifyBackendDesktop = "desktop"
	NotifyBackendLog     = "log"
	NotifyBackendNone    = "none"
)

type Config struct {
	Poll          PollConfig
	Sessions      SessionsConfig
	Notifications NotificationsConfig
	Store         StoreConfig
	Redis         RedisConfig
	API           APIConfig
	Auth          AuthConfig
	Daemon        DaemonConfig
	Notify        NotifyConfig
	Badge         BadgeConfig
	Log           LogConfig
}

type PollConfig struct {
	Interval    time.Duration
	MaxDuration time.Duration
}

type SessionsConfig struct {
	MaxRecords int
}

type NotificationsConfig struct {
	FeedbackWindow time.Duration
}

type StoreConfig struct {
	Backend   string
	Path      string
	Namespace string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type AuthConfig struct {
	Backend       string
	CredentialKey string
	SecretsDir    string
}

type DaemonConfig struct {
	Listen       string
	ExitWhenIdle bool
	IdleGrace    time.Duration
	// LockFile is held by a running daemon; submit checks it to hand
	// polling over instead of polling the same session twice.
	LockFile string
}

type NotifyConfig struct {
	Backend string
	// OpenURL is a format string taking the session id. Empty disables
	// opening the session page on completion.
	OpenURL string
}

type BadgeConfig struct {
	StatusFile string
}

type LogConfig struct {
	Level string
}

// Load resolves configuration from defaults, the optional config file and
// CALSNAP_* environment variables, in increasing precedence.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".config", configDir)

	setDefaults(v, baseDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(baseDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Poll: PollConfig{
			Interval:    v.GetDuration("poll.interval"),
			MaxDuration: v.GetDuration("poll.max_duration"),
		},
		Sessions: SessionsConfig{
			MaxRecords: v.GetInt("sessions.max_records"),
		},
		Notifications: NotificationsConfig{
			FeedbackWindow: v.GetDuration("notifications.feedback_window"),
		},
		Store: StoreConfig{
			Backend:   strings.ToLower(v.GetString("store.backend")),
			Path:      v.GetString("store.path"),
			Namespace: v.GetString("store.namespace"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		API: APIConfig{
			BaseURL:        v.GetString("api.base_url"),
			RequestTimeout: v.GetDuration("api.request_timeout"),
		},
		Auth: AuthConfig{
			Backend:       strings.ToLower(v.GetString("auth.backend")),
			CredentialKey: v.GetString("auth.credential_key"),
			SecretsDir:    v.GetString("auth.secrets_dir"),
		},
		Daemon: DaemonConfig{
			Listen:       v.GetString("daemon.listen"),
			ExitWhenIdle: v.GetBool("daemon.exit_when_idle"),
			IdleGrace:    v.GetDuration("daemon.idle_grace"),
			LockFile:     v.GetString("daemon.lock_file"),
		},
		Notify: NotifyConfig{
			Backend: strings.ToLower(v.GetString("notify.backend")),
			OpenURL: v.GetString("notify.open_url"),
		},
		Badge: BadgeConfig{
			StatusFile: v.GetString("badge.status_file"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("poll.max_duration", 5*time.Minute)
	v.SetDefault("sessions.max_records", 10)
	v.SetDefault("notifications.feedback_window", 24*time.Hour)
	v.SetDefault("store.backend", StoreBackendFile)
	v.SetDefault("store.path", filepath.Join(baseDir, "store.toml"))
	v.SetDefault("store.namespace", "calsnap")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("api.base_url", "https://api.calsnap.app")
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("auth.backend", AuthBackendChain)
	v.SetDefault("auth.credential_key", "calsnap/auth/token")
	v.SetDefault("auth.secrets_dir", filepath.Join(baseDir, "secrets"))
	v.SetDefault("daemon.listen", "127.0.0.1:7777")
	v.SetDefault("daemon.exit_when_idle", false)
	v.SetDefault("daemon.idle_grace", 30*time.Second)
	v.SetDefault("daemon.lock_file", filepath.Join(baseDir, "daemon.lock"))
	v.SetDefault("notify.backend", NotifyBackendDesktop)
	v.SetDefault("notify.open_url", "")
	v.SetDefault("badge.status_file", "")
	v.SetDefault("log.level", "info")
}

func (c Config) Validate() error {
	var errs []error

	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("poll.max_duration must be positive, got %s", c.Poll.MaxDuration))
	}
	if c.Sessions.MaxRecords < 1 {
		errs = append(errs, fmt.Errorf("sessions.max_records must be at least 1, got %d", c.Sessions.MaxRecords))
	}
	if c.Notifications.FeedbackWindow <= 0 {
		errs = append(errs, fmt.Errorf("notifications.feedback_window must be positive, got %s", c.Notifications.FeedbackWindow))
	}
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendRedis, StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported store.backend %q", c.Store.Backend))
	}
	if c.Store.Backend == StoreBackendFile && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}
	if strings.TrimSpace(c.Store.Namespace) == "" {
		errs = append(errs, errors.New("store.namespace is empty"))
	}
	switch c.Auth.Backend {
	case AuthBackendChain, AuthBackendFile, AuthBackendPass:
	default:
		errs = append(errs, fmt.Errorf("unsupported auth.backend %q", c.Auth.Backend))
	}
	switch c.Notify.Backend {
	case NotifyBackendDesktop, NotifyBackendLog, NotifyBackendNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported notify.backend %q", c.Notify.Backend))
	}

	return errors.Join(errs...)
}
