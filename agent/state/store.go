package state

import (
	"context"
	"errors"
)

var (
	ErrStateNotFound    = errors.New("session state not found")
	ErrNilSessionState  = errors.New("session state is nil")
	ErrInvalidSession   = errors.New("session id is empty")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrSessionTooLarge  = errors.New("session state exceeds the store document limit")
	ErrResponseTooLarge = errors.New("session store response exceeds the read limit")
)

// Store persists SessionState keyed by session id. Writes are last-writer-wins.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}
