// Package auth resolves caller identity from session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/kindredapp/companion/backend/internal/store"
)

// ErrInvalidSession is returned when a token is missing, unknown, or revoked.
var ErrInvalidSession = errors.New("invalid session")

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// SessionAuthenticator validates tokens against the session records in the
// store.
type SessionAuthenticator struct {
	store store.Store
}

// NewSessionAuthenticator returns an Authenticator over the given store.
func NewSessionAuthenticator(st store.Store) *SessionAuthenticator {
	return &SessionAuthenticator{store: st}
}

// Authenticate implements Authenticator.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}
	userID, err := a.store.LookupSession(ctx, token)
	if errors.Is(err, store.ErrSessionNotFound) {
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	return userID, nil
}
