// Package gate decides whether companion mode is available to a caller:
// they must belong to a pairing whose partner is verifiably away.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kindredapp/companion/backend/internal/model/companion"
	"github.com/kindredapp/companion/backend/internal/store"
)

// DefaultInactivityThreshold is the minimum time the partner must have been
// inactive before companion mode unlocks.
const DefaultInactivityThreshold = 10 * time.Minute

var (
	ErrNoPairing        = errors.New("no active pair found")
	ErrPartnerNotJoined = errors.New("partner has not joined yet")
	ErrPartnerActive    = errors.New("partner is active")
)

// Decision is a successful authorization: the partner's identity and, when
// stored, their style summary for prompt construction.
type Decision struct {
	PartnerID string
	Style     *companion.StyleSummary
}

// Gate performs the pairing and inactivity checks.
type Gate struct {
	store     store.Store
	threshold time.Duration
	now       func() time.Time
}

// New returns a Gate over the given store. A non-positive threshold falls
// back to DefaultInactivityThreshold.
func New(st store.Store, threshold time.Duration) *Gate {
	if threshold <= 0 {
		threshold = DefaultInactivityThreshold
	}
	return &Gate{store: st, threshold: threshold, now: time.Now}
}

// Authorize checks the caller's pairing and the partner's recent activity.
// A partner with no profile or no recorded activity counts as inactive, so a
// never-seen partner does not block the feature.
func (g *Gate) Authorize(ctx context.Context, userID string) (Decision, error) {
	pairing, err := g.store.FindPairingByUser(ctx, userID)
	if errors.Is(err, store.ErrPairingNotFound) {
		return Decision{}, ErrNoPairing
	}
	if err != nil {
		return Decision{}, fmt.Errorf("pairing lookup: %w", err)
	}
	if pairing.PartnerID == "" {
		return Decision{}, ErrPartnerNotJoined
	}

	profile, err := g.store.GetProfile(ctx, pairing.PartnerID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return Decision{PartnerID: pairing.PartnerID}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("partner profile lookup: %w", err)
	}

	if profile.LastActive != nil {
		if g.now().Sub(*profile.LastActive) < g.threshold {
			return Decision{}, ErrPartnerActive
		}
	}

	return Decision{PartnerID: pairing.PartnerID, Style: profile.StyleSummary}, nil
}
