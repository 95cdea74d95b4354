package store

import (
	"context"
	"testing"
	"time"

	"github.com/kindredapp/companion/backend/internal/model/companion"
)

func TestMemoryStorePairingNormalized(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id := s.AddPairing("alice", "bob")

	got, err := s.FindPairingByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("FindPairingByUser err: %v", err)
	}
	if got.ID != id || got.UserID != "alice" || got.PartnerID != "bob" {
		t.Fatalf("unexpected pairing: %+v", got)
	}

	// Same pairing seen from the other side.
	got, err = s.FindPairingByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("FindPairingByUser err: %v", err)
	}
	if got.UserID != "bob" || got.PartnerID != "alice" {
		t.Fatalf("unexpected pairing: %+v", got)
	}
}

func TestMemoryStorePairingNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.FindPairingByUser(context.Background(), "nobody"); err != ErrPairingNotFound {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
}

func TestMemoryStorePartnerNotJoined(t *testing.T) {
	s := NewMemoryStore()
	s.AddPairing("alice", "")

	got, err := s.FindPairingByUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindPairingByUser err: %v", err)
	}
	if got.PartnerID != "" {
		t.Fatalf("expected empty partner id, got %q", got.PartnerID)
	}
}

func TestMemoryStoreProfileAndSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	lastActive := time.Now().Add(-time.Hour)
	s.PutProfile(companion.Profile{
		UserID:       "bob",
		LastActive:   &lastActive,
		StyleSummary: &companion.StyleSummary{Tone: "calm", AvgLength: "short", EmojiUsage: "low"},
	})

	profile, err := s.GetProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("GetProfile err: %v", err)
	}
	if profile.StyleSummary == nil || profile.StyleSummary.Tone != "calm" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := s.GetProfile(ctx, "nobody"); err != ErrProfileNotFound {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	s.PutSession("tok", "bob")
	userID, err := s.LookupSession(ctx, "tok")
	if err != nil {
		t.Fatalf("LookupSession err: %v", err)
	}
	if userID != "bob" {
		t.Fatalf("unexpected user id: %q", userID)
	}
	if _, err := s.LookupSession(ctx, "missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSeedDemo(t *testing.T) {
	s := NewMemoryStore()
	token := SeedDemo(s)
	if token == "" {
		t.Fatal("expected non-empty demo token")
	}

	ctx := context.Background()
	userID, err := s.LookupSession(ctx, token)
	if err != nil {
		t.Fatalf("LookupSession err: %v", err)
	}

	pairing, err := s.FindPairingByUser(ctx, userID)
	if err != nil {
		t.Fatalf("FindPairingByUser err: %v", err)
	}

	partner, err := s.GetProfile(ctx, pairing.PartnerID)
	if err != nil {
		t.Fatalf("GetProfile err: %v", err)
	}
	if partner.LastActive == nil || time.Since(*partner.LastActive) < 10*time.Minute {
		t.Fatalf("demo partner should be long inactive: %+v", partner)
	}
}
