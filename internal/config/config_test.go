package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Poll.MaxDuration)
	assert.Equal(t, 10, cfg.Sessions.MaxRecords)
	assert.Equal(t, 24*time.Hour, cfg.Notifications.FeedbackWindow)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, "calsnap", cfg.Store.Namespace)
	assert.Equal(t, "store.toml", filepath.Base(cfg.Store.Path))
	assert.Equal(t, NotifyBackendDesktop, cfg.Notify.Backend)
	assert.Equal(t, AuthBackendChain, cfg.Auth.Backend)
	assert.Empty(t, cfg.Notify.OpenURL)
	assert.Empty(t, cfg.Badge.StatusFile)
	assert.Equal(t, "daemon.lock", filepath.Base(cfg.Daemon.LockFile))
}

func TestLoadReadsConfigFileAndEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CALSNAP_POLL_INTERVAL", "500ms")

	configPath := filepath.Join(home, ".config", "calsnap", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o700))
	require.NoError(t, os.WriteFile(configPath, []byte(`
[poll]
interval = "3s"
max_duration = "1m"

[sessions]
max_records = 4

[store]
backend = "memory"
`), 0o600))

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, time.Minute, cfg.Poll.MaxDuration)
	assert.Equal(t, 4, cfg.Sessions.MaxRecords)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
}

func TestLoadRejectsInvalidTunables(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	testCases := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{name: "zero interval", key: "poll.interval", value: "0s", wantErr: "poll.interval must be positive"},
		{name: "negative max duration", key: "poll.max_duration", value: "-1s", wantErr: "poll.max_duration must be positive"},
		{name: "no records", key: "sessions.max_records", value: 0, wantErr: "sessions.max_records must be at least 1"},
		{name: "unknown backend", key: "store.backend", value: "etcd", wantErr: "unsupported store.backend"},
		{name: "unknown notifier", key: "notify.backend", value: "pager", wantErr: "unsupported notify.backend"},
		{name: "unknown auth backend", key: "auth.backend", value: "keychain", wantErr: "unsupported auth.backend"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tc.key, tc.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
