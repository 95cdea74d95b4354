// Package store provides read access to pairings, profiles, and sessions,
// with in-memory and SQLite implementations.
package store

import (
	"context"
	"errors"

	"github.com/kindredapp/companion/backend/internal/model/companion"
)

var (
	ErrPairingNotFound = errors.New("pairing not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Store exposes the lookups the companion pipeline needs. All methods are
// read-only; this service never mutates pairing or profile records.
type Store interface {
	// FindPairingByUser returns the pairing the user belongs to, normalized
	// so that UserID is the queried user and PartnerID the other side.
	// PartnerID is empty when the partner has not joined yet.
	FindPairingByUser(ctx context.Context, userID string) (companion.Pairing, error)

	// GetProfile returns the profile for the given user.
	GetProfile(ctx context.Context, userID string) (companion.Profile, error)

	// LookupSession resolves a session token to a user id.
	LookupSession(ctx context.Context, token string) (string, error)
}
