package entity

import (
	"context"
	"strconv"
	"strings"
	"time"

	"pathing/internal/behavior"
	"pathing/internal/logging"
	"pathing/internal/pack"
	"pathing/internal/services"

	"github.com/google/uuid"
)

// Behavior is attached to an entity and advanced every active tick.
type Behavior interface {
	Update(svc *services.Context)
	Unload()
}

// Filter is a behavior that can hide its entity.
type Filter interface {
	IsFiltered(svc *services.Context) bool
}

// Interactor is a behavior that reacts to the player interacting.
type Interactor interface {
	Interact(ctx context.Context, svc *services.Context, autoTriggered bool) error
}

// Attribute names read when building behaviors.
const (
	ResetLengthAttribute    = "resetlength"
	InvertBehaviorAttribute = "invertbehavior"
)

// StandardFilter hides its entity according to a behavior mode.
type StandardFilter struct {
	mode        behavior.Mode
	guid        uuid.UUID
	invert      bool
	resetLength time.Duration
	policy      *behavior.Policy
}

// NewStandardFilter returns a filter for one entity.
func NewStandardFilter(mode behavior.Mode, guid uuid.UUID, invert bool, resetLength time.Duration, policy *behavior.Policy) *StandardFilter {
	return &StandardFilter{mode: mode, guid: guid, invert: invert, resetLength: resetLength, policy: policy}
}

func (f *StandardFilter) Mode() behavior.Mode { return f.mode }

func (f *StandardFilter) Update(*services.Context) {}
func (f *StandardFilter) Unload()                  {}

func (f *StandardFilter) IsFiltered(svc *services.Context) bool {
	return f.policy.IsFiltered(f.mode, f.invert, f.guid, svc.Player.CharacterName(), svc.Now())
}

func (f *StandardFilter) Interact(ctx context.Context, svc *services.Context, _ bool) error {
	return f.policy.Interact(ctx, f.mode, f.guid, f.resetLength, svc.Player.CharacterName(), svc.Now())
}

// buildBehaviors reads the behavior attributes of poi. A value that does not
// decode is logged and the entity gets no filter.
func buildBehaviors(poi *pack.PointOfInterest, policy *behavior.Policy) []Behavior {
	if policy == nil {
		return nil
	}
	raw, ok := poi.AggregatedAttribute(behavior.AttributeName)
	if !ok {
		return nil
	}
	mode, err := behavior.ParseMode(raw)
	if err != nil {
		logging.EntityWarn("%s: %v", poi.GUID, err)
		return nil
	}
	if !mode.Filters() {
		return nil
	}

	return []Behavior{NewStandardFilter(mode, poi.GUID, invertBehavior(poi), resetLength(poi), policy)}
}

func invertBehavior(poi *pack.PointOfInterest) bool {
	raw, ok := poi.AggregatedAttribute(InvertBehaviorAttribute)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func resetLength(poi *pack.PointOfInterest) time.Duration {
	raw, ok := poi.AggregatedAttribute(ResetLengthAttribute)
	if !ok {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
