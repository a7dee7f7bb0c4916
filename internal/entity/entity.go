// Package entity holds the live pathing entities built from a pack: markers
// and trails behind one capability contract, their behaviors, the per-tick
// update logic and the published set the renderer reads.
package entity

import (
	"context"
	"errors"
	"fmt"

	"pathing/internal/behavior"
	"pathing/internal/pack"
	"pathing/internal/resource"
	"pathing/internal/services"

	"github.com/google/uuid"
)

var (
	// ErrUnknownType is returned when a point of interest has no entity variant.
	ErrUnknownType = errors.New("unknown point of interest type")
	// ErrRouteUnsupported is returned for routes, which are not built yet.
	ErrRouteUnsupported = errors.New("routes are not supported")
)

// RenderTarget selects where an entity is drawn.
type RenderTarget int

const (
	TargetWorld RenderTarget = iota
	TargetMap
)

// RenderState is what the renderer needs to draw one entity this frame.
type RenderState struct {
	Visible bool
	Opacity float32
	Texture *resource.Texture
}

// Entity is the capability contract shared by every entity variant.
type Entity interface {
	GUID() uuid.UUID
	Kind() pack.Type
	MapID() int
	Category() *pack.Category

	Update(svc *services.Context)
	Render(svc *services.Context, target RenderTarget) RenderState
	Interact(ctx context.Context, svc *services.Context, autoTriggered bool) error
	Unload()

	// Filtered reports whether the entity is hidden on target.
	Filtered(svc *services.Context, target RenderTarget) bool
}

// NamespaceStates reports category activation.
type NamespaceStates interface {
	IsNamespaceInactive(namespace string) bool
}

// Deps are the collaborators entities are constructed with.
type Deps struct {
	Policy     *behavior.Policy
	Categories NamespaceStates
	Textures   *resource.Cache
	// Root returns the active category tree; entities without a category
	// are attached to it.
	Root func() *pack.Category
}

// Build constructs the entity for poi.
func Build(poi *pack.PointOfInterest, deps Deps) (Entity, error) {
	switch poi.Type {
	case pack.TypeMarker:
		return NewMarker(poi, deps), nil
	case pack.TypeTrail:
		return NewTrail(poi, deps), nil
	case pack.TypeRoute:
		return nil, fmt.Errorf("%s: %w", poi.GUID, ErrRouteUnsupported)
	default:
		return nil, fmt.Errorf("%s (%s): %w", poi.GUID, poi.Type, ErrUnknownType)
	}
}

// Texture attribute names per variant.
const (
	MarkerTextureAttribute = "iconfile"
	TrailTextureAttribute  = "texture"
)

// TextureRef returns the resource poi needs before it can render.
func TextureRef(poi *pack.PointOfInterest) (string, bool) {
	switch poi.Type {
	case pack.TypeMarker:
		return poi.AggregatedAttribute(MarkerTextureAttribute)
	case pack.TypeTrail:
		return poi.AggregatedAttribute(TrailTextureAttribute)
	}
	return "", false
}
