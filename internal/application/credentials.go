package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const DefaultCredentialKey = "calsnap/auth/token"

var authFailureMarkers = []string{"401", "unauthorized", "expired", "jwt"}

// IsAuthFailure reports whether a session-creation error means the stored
// credential is no longer accepted.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrAuthenticationRequired) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, marker := range authFailureMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// CredentialGuard owns the API credential: it hands the token to the remote
// adapter, rejects tokens that are already expired and drops rejected ones.
type CredentialGuard struct {
	store  ports.CredentialStore
	key    string
	clock  ports.Clock
	parser *jwt.Parser
}

func NewCredentialGuard(store ports.CredentialStore, key string, clock ports.Clock) *CredentialGuard {
	if strings.TrimSpace(key) == "" {
		key = DefaultCredentialKey
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &CredentialGuard{
		store:  store,
		key:    key,
		clock:  clock,
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

func (g *CredentialGuard) Token(ctx context.Context) (string, error) {
	token, err := g.store.Get(ctx, g.key)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return "", fmt.Errorf("%w: no credential stored", domain.ErrAuthenticationRequired)
		}
		return "", fmt.Errorf("read credential: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty credential", domain.ErrAuthenticationRequired)
	}

	return token, nil
}

// Check fails with ErrAuthenticationRequired when no token is stored or the
// token is a JWT whose exp claim has passed. Opaque tokens are accepted as is
// and only rejected by the remote service.
func (g *CredentialGuard) Check(ctx context.Context) error {
	token, err := g.Token(ctx)
	if err != nil {
		return err
	}

	var claims jwt.RegisteredClaims
	if _, _, err := g.parser.ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(g.clock.Now()) {
		return fmt.Errorf("%w: token expired at %s", domain.ErrAuthenticationRequired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	return nil
}

func (g *CredentialGuard) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("credential is empty")
	}
	if err := g.store.Put(ctx, g.key, token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (g *CredentialGuard) Invalidate(ctx context.Context) error {
	if err := g.store.Delete(ctx, g.key); err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
