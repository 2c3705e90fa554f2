package ports

import "context"

// CredentialStore holds the remote API credential. Deleting the entry is how
// an expired or rejected token gets invalidated.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
