package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// ErrUnavailable means pass(1) is not installed. The chain store falls back
// to the file store on it.
var ErrUnavailable = errors.New("pass command unavailable")

var errMultilineToken = errors.New("token spans multiple lines")

const missingEntryMarker = "is not in the password store"

// invocation is one pass subcommand plus what it reads on stdin.
type invocation struct {
	args  []string
	stdin string
}

type runner func(ctx context.Context, inv invocation) (stdout string, stderr string, err error)

// Store keeps the calsnap API token as a single-line pass entry.
type Store struct {
	run runner
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: execPass}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("pass put %q: %w", key, errMultilineToken)
	}

	_, err := s.call(ctx, "put", key, invocation{
		args:  []string{"insert", "-m", "-f", key},
		stdin: value + "\n",
	})
	return err
}

// Get returns the first line of the entry. Users who add notes below the
// token with `pass edit` still get a usable credential.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	out, err := s.call(ctx, "get", key, invocation{args: []string{"show", key}})
	if err != nil {
		return "", err
	}

	token, _, _ := strings.Cut(out, "\n")
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("pass entry %q is empty: %w", key, domain.ErrCredentialNotFound)
	}
	return token, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.call(ctx, "delete", key, invocation{args: []string{"rm", "-f", key}})
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil
	}
	return err
}

func (s *Store) call(ctx context.Context, op string, key string, inv invocation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, inv)
	switch {
	case err == nil:
		return stdout, nil
	case strings.Contains(stderr, missingEntryMarker):
		return "", fmt.Errorf("pass entry %q: %w", key, domain.ErrCredentialNotFound)
	case stderr != "":
		return "", fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
	default:
		return "", fmt.Errorf("pass %s %q: %w", op, key, err)
	}
}

func execPass(ctx context.Context, inv invocation) (string, string, error) {
	path, err := exec.LookPath("pass")
	if errors.Is(err, exec.ErrNotFound) {
		return "", "", ErrUnavailable
	}
	if err != nil {
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, inv.args...)
	cmd.Stdin = strings.NewReader(inv.stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
