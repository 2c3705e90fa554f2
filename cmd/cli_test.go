package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/adapters/daemonlock"
	filekv "github.com/bnema/calsnap/internal/adapters/kv/file"
	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestUnknownCommandFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestAuthStatusWithoutTokenReportsNotAuthenticated(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	stdout, _, err := executeCLI(t, home, "auth", "status")
	require.Error(t, err)
	assert.Contains(t, stdout, "not authenticated")
}

func TestAuthSetThenStatusReportsAuthenticated(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	_, _, err := executeCLI(t, home, "auth", "set", "--token", "opaque-token")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Equal(t, "authenticated\n", stdout)

	_, _, err = executeCLI(t, home, "auth", "clear")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "auth", "status")
	require.Error(t, err)
}

func TestAuthSetReadsTokenFromStdin(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	_, _, err := executeCLIWithInput(t, home, "stdin-token\n", "auth", "set")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Equal(t, "authenticated\n", stdout)
}

func TestSubmitWithoutTokenFails(t *testing.T) {
	home := t.TempDir()
	service := newFakeService()
	useFakeService(t, service)

	_, _, err := executeCLI(t, home, "submit", "--detach", "dinner friday 7pm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication required")
	assert.Zero(t, service.created())
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())
	authenticate(t, home)

	_, _, err := executeCLI(t, home, "submit", "--detach", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSubmitDetachedLeavesSessionPolling(t *testing.T) {
	home := t.TempDir()
	service := newFakeService()
	useFakeService(t, service)
	authenticate(t, home)

	stdout, _, err := executeCLI(t, home, "submit", "--detach", "--title", "Dinner", "dinner friday 7pm")
	require.NoError(t, err)
	assert.Equal(t, "sess-1: submitted, polling in the background\n", stdout)
	assert.Equal(t, 1, service.created())

	stdout, _, err = executeCLI(t, home, "sessions", "list", "--json")
	require.NoError(t, err)

	var overview struct {
		Sessions []struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			Title     string `json:"title"`
			InputType string `json:"input_type"`
		} `json:"sessions"`
		Queue []string `json:"queue"`
		Badge struct {
			Kind string `json:"kind"`
		} `json:"badge"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &overview))
	require.Len(t, overview.Sessions, 1)
	assert.Equal(t, "sess-1", overview.Sessions[0].ID)
	assert.Equal(t, "polling", overview.Sessions[0].Status)
	assert.Equal(t, "Dinner", overview.Sessions[0].Title)
	assert.Equal(t, "text", overview.Sessions[0].InputType)
	assert.Empty(t, overview.Queue)
	assert.Equal(t, "spinner", overview.Badge.Kind)
}

func TestSubmitPollsUntilProcessedThenPushAndDismiss(t *testing.T) {
	home := t.TempDir()
	service := newFakeService()
	useFakeService(t, service)
	authenticate(t, home)

	stdout, _, err := executeCLI(t, home, "submit", "dentist tuesday 9am")
	require.NoError(t, err)
	assert.Equal(t, "sess-1: 1 event: Dentist\n", stdout)

	stdout, _, err = executeCLI(t, home, "badge")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)

	_, _, err = executeCLI(t, home, "push", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-1"}, service.pushedIDs())

	stdout, _, err = executeCLI(t, home, "dismiss", "--all")
	require.NoError(t, err)
	assert.Equal(t, "dismissed 1 sessions\n", stdout)

	stdout, _, err = executeCLI(t, home, "badge", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"empty"}`, stdout)

	stdout, _, err = executeCLI(t, home, "sessions", "show", "sess-1", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"added_to_calendar": true`)
	assert.Contains(t, stdout, `"dismissed_at"`)
}

func TestSubmitHandsPollingToRunningDaemon(t *testing.T) {
	home := t.TempDir()
	service := newFakeService()
	useFakeService(t, service)
	authenticate(t, home)

	lockPath := filepath.Join(home, ".config", "calsnap", "daemon.lock")
	lock := daemonlock.New(lockPath)
	require.NoError(t, lock.TryLock())
	t.Cleanup(func() { _ = lock.Unlock() })

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetIn(strings.NewReader(""))
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"submit", "dentist tuesday 9am"})

	done := make(chan error, 1)
	go func() { done <- root.Execute() }()

	kv, err := filekv.New(filepath.Join(home, ".config", "calsnap", "store.toml"))
	require.NoError(t, err)
	store := application.NewSessionStore(kv, application.NewKeys("calsnap"), 10, nil)
	ctx := context.Background()

	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, "sess-1")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	result, err := store.Patch(ctx, "sess-1", domain.ProcessedPatch([]domain.Event{{ID: "ev-1", Title: "Dentist"}}, 1))
	require.NoError(t, err)
	require.True(t, result.Transitioned)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not return after the session settled")
	}

	assert.Equal(t, "sess-1: 1 event: Dentist\n", stdout.String())
	assert.Zero(t, service.polled())
}

func TestSubmitReportsRemoteFailure(t *testing.T) {
	home := t.TempDir()
	service := newFakeService()
	service.status = `{"status":"error","error_message":"Could not read the image."}`
	useFakeService(t, service)
	authenticate(t, home)

	stdout, _, err := executeCLI(t, home, "submit", "blurry")
	require.NoError(t, err)
	assert.Equal(t, "sess-1: error: Could not read the image.\n", stdout)

	stdout, _, err = executeCLI(t, home, "badge")
	require.NoError(t, err)
	assert.Equal(t, "!\n", stdout)
}

func TestPushRejectsPollingSession(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())
	authenticate(t, home)

	_, _, err := executeCLI(t, home, "submit", "--detach", "lunch")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "push", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no processed events")
}

func TestDismissRequiresIDOrAll(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	_, _, err := executeCLI(t, home, "dismiss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a session id or --all")

	_, _, err = executeCLI(t, home, "dismiss", "sess-1", "--all")
	require.Error(t, err)
}

func TestDismissUnknownSessionFails(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	_, _, err := executeCLI(t, home, "dismiss", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSessionsListRendersEmptyState(t *testing.T) {
	home := t.TempDir()
	useFakeService(t, newFakeService())

	stdout, _, err := executeCLI(t, home, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Calendar sessions")
	assert.Contains(t, stdout, "sessions: 0")
}

type fakeService struct {
	mu          sync.Mutex
	status      string
	count       int
	statusCalls int
	pushed      []string
}

func newFakeService() *fakeService {
	return &fakeService{status: `{"status":"processed","title":"Dentist"}`}
}

func (s *fakeService) created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *fakeService) polled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls
}

func (s *fakeService) pushedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pushed...)
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/sessions":
		s.count++
		_, _ = w.Write([]byte(`{"id":"sess-1"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/sessions/sess-1":
		s.statusCalls++
		_, _ = w.Write([]byte(s.status))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/sessions/sess-1/events":
		_, _ = w.Write([]byte(`{"events":[{"id":"ev-1","title":"Dentist","start":"2026-10-20T09:00:00Z"}],"count":1}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/sessions/sess-1/push":
		var body struct {
			EventIDs []string `json:"event_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.pushed = append(s.pushed, body.EventIDs...)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func useFakeService(t *testing.T, service *fakeService) {
	t.Helper()

	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	t.Setenv("CALSNAP_API_BASE_URL", server.URL)
	t.Setenv("CALSNAP_AUTH_BACKEND", "file")
	t.Setenv("CALSNAP_NOTIFY_BACKEND", "none")
	t.Setenv("CALSNAP_POLL_INTERVAL", "10ms")
	t.Setenv("CALSNAP_LOG_LEVEL", "error")
}

func authenticate(t *testing.T, home string) {
	t.Helper()

	_, _, err := executeCLI(t, home, "auth", "set", "--token", "opaque-token")
	require.NoError(t, err)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home string, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
