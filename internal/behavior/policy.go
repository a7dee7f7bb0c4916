package behavior

import (
	"context"
	"fmt"
	"time"

	"pathing/internal/logging"

	"github.com/google/uuid"
)

// Store is the visibility store the policy reads and commits to.
type Store interface {
	IsHidden(key Key, now time.Time) bool
	AddPermanent(key Key, mode Mode)
	AddTimed(ctx context.Context, key Key, mode Mode, expiry time.Time) error
}

// Policy translates interactions into visibility records and answers
// whether a marker is filtered.
type Policy struct {
	store Store
}

// NewPolicy returns a policy over store.
func NewPolicy(store Store) *Policy {
	return &Policy{store: store}
}

// IsFiltered reports whether the marker is hidden right now. invert flips
// the answer for markers that should only show until discovered.
func (p *Policy) IsFiltered(mode Mode, invert bool, id uuid.UUID, character string, now time.Time) bool {
	hidden := p.store.IsHidden(DeriveKey(mode, id, character), now)
	if invert {
		return !hidden
	}
	return hidden
}

// Interact commits the record for one interaction with a marker.
// Modes that never filter are ignored.
func (p *Policy) Interact(ctx context.Context, mode Mode, id uuid.UUID, resetLength time.Duration, character string, now time.Time) error {
	key := DeriveKey(mode, id, character)
	now = now.UTC()

	var expiry time.Time
	switch mode {
	case ReappearOnMapChange, OnlyVisibleBeforeActivation, OncePerInstance:
		p.store.AddPermanent(key, mode)
		logging.BehaviorDebug("%s: %s hidden until unload", mode, id)
		return nil
	case ReappearOnDailyReset, OnceDailyPerCharacter:
		expiry = NextDailyReset(now)
	case ReappearAfterTimer:
		expiry = now.Add(resetLength)
	case ReappearOnWeeklyReset:
		expiry = NextWeeklyReset(now)
	default:
		return nil
	}

	if err := p.store.AddTimed(ctx, key, mode, expiry); err != nil {
		return fmt.Errorf("commit %s for %s: %w", mode, id, err)
	}
	logging.Behavior("%s: %s hidden until %s", mode, id, expiry.Format(time.RFC3339))
	return nil
}
