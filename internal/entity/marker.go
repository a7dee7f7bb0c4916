package entity

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"pathing/internal/pack"
	"pathing/internal/services"
)

// DefaultTriggerRange is used when a marker does not set triggerrange.
const DefaultTriggerRange = 2.0

// Marker is a single point the player can focus and interact with.
type Marker struct {
	base

	triggerRange float64
	focused      atomic.Bool
}

// NewMarker builds a marker from poi.
func NewMarker(poi *pack.PointOfInterest, deps Deps) *Marker {
	m := &Marker{triggerRange: DefaultTriggerRange}
	m.init(poi, deps)
	m.onDeactivated = m.Unfocus

	if raw, ok := poi.AggregatedAttribute("triggerrange"); ok {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r > 0 {
			m.triggerRange = r
		}
	}

	m.setBehaviors(buildBehaviors(poi, deps.Policy))
	return m
}

func (m *Marker) TriggerRange() float64 { return m.triggerRange }

func (m *Marker) Focus()        { m.focused.Store(true) }
func (m *Marker) Unfocus()      { m.focused.Store(false) }
func (m *Marker) Focused() bool { return m.focused.Load() }

// Interact forwards the interaction to every interactive behavior.
func (m *Marker) Interact(ctx context.Context, svc *services.Context, autoTriggered bool) error {
	var errs []error
	for _, bh := range m.Behaviors() {
		if in, ok := bh.(Interactor); ok {
			if err := in.Interact(ctx, svc, autoTriggered); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
