package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kindredapp/companion/backend/internal/model/companion"
)

// pair keeps both sides of a pairing; lookups normalize to the caller's view.
type pair struct {
	id    string
	user1 string
	user2 string
}

// MemoryStore implements Store with in-memory maps, suitable for single
// instance deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	pairs    []pair
	profiles map[string]companion.Profile
	sessions map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]companion.Profile),
		sessions: make(map[string]string),
	}
}

// AddPairing registers a pairing between two users. user2 may be empty when
// the partner has not joined yet. Returns the pairing id.
func (s *MemoryStore) AddPairing(user1, user2 string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.pairs = append(s.pairs, pair{id: id, user1: user1, user2: user2})
	return id
}

// PutProfile stores or replaces a profile.
func (s *MemoryStore) PutProfile(profile companion.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

// PutSession registers a session token for a user.
func (s *MemoryStore) PutSession(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
}

// FindPairingByUser implements Store.
func (s *MemoryStore) FindPairingByUser(_ context.Context, userID string) (companion.Pairing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pairs {
		switch userID {
		case p.user1:
			return companion.Pairing{ID: p.id, UserID: userID, PartnerID: p.user2}, nil
		case p.user2:
			return companion.Pairing{ID: p.id, UserID: userID, PartnerID: p.user1}, nil
		}
	}
	return companion.Pairing{}, ErrPairingNotFound
}

// GetProfile implements Store.
func (s *MemoryStore) GetProfile(_ context.Context, userID string) (companion.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return companion.Profile{}, ErrProfileNotFound
	}
	return profile, nil
}

// LookupSession implements Store.
func (s *MemoryStore) LookupSession(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	return userID, nil
}

// SeedDemo populates a MemoryStore with a demo couple where the partner went
// inactive long ago, and returns the demo user's session token. Used by the
// server when no database is configured.
func SeedDemo(s *MemoryStore) string {
	userID := uuid.NewString()
	partnerID := uuid.NewString()
	s.AddPairing(userID, partnerID)

	lastActive := time.Now().Add(-time.Hour)
	s.PutProfile(companion.Profile{UserID: userID})
	s.PutProfile(companion.Profile{
		UserID:     partnerID,
		LastActive: &lastActive,
		StyleSummary: &companion.StyleSummary{
			AvgLength:     "short",
			EmojiUsage:    "low",
			Tone:          "calm",
			ResponseSpeed: "fast",
		},
	})

	token := uuid.NewString()
	s.PutSession(token, userID)
	return token
}
