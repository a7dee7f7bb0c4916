package entity

import (
	"context"

	"pathing/internal/pack"
	"pathing/internal/services"
)

// Trail is a textured path. Trails filter like markers but cannot be
// interacted with.
type Trail struct {
	base
}

// NewTrail builds a trail from poi.
func NewTrail(poi *pack.PointOfInterest, deps Deps) *Trail {
	t := &Trail{}
	t.init(poi, deps)
	t.setBehaviors(buildBehaviors(poi, deps.Policy))
	return t
}

func (t *Trail) Interact(context.Context, *services.Context, bool) error {
	return nil
}
