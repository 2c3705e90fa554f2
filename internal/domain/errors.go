package domain

import "errors"

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionNotProcessed    = errors.New("session has no processed events")
	ErrKeyNotFound            = errors.New("key not found")
	ErrCredentialNotFound     = errors.New("credential not found")
	ErrAuthenticationRequired = errors.New("authentication required")
)
