package entity

import (
	"sync"
	"sync/atomic"
	"time"

	"pathing/internal/logging"
	"pathing/internal/pack"
	"pathing/internal/resource"
	"pathing/internal/services"

	"github.com/google/uuid"
)

// base carries the state every variant shares and implements the update
// loop. Variants supply their edge hooks.
type base struct {
	guid     uuid.UUID
	kind     pack.Type
	mapID    int
	category *pack.Category
	source   pack.Source

	textureRef string
	textures   *resource.Cache
	categories NamespaceStates

	mu        sync.RWMutex
	behaviors []Behavior

	// Touched only from Update.
	wasInactive bool
	needsFadeIn bool

	filtered  atomic.Bool
	fadeStart atomic.Int64 // unix nanos, 0 = never faded in

	onActivated   func()
	onDeactivated func()
}

func (b *base) init(poi *pack.PointOfInterest, deps Deps) {
	category := poi.Category
	if category == nil && deps.Root != nil {
		category = deps.Root()
	}
	b.guid = poi.GUID
	b.kind = poi.Type
	b.mapID = poi.MapID
	b.category = category
	b.source = poi.Source
	b.textureRef, _ = TextureRef(poi)
	b.textures = deps.Textures
	b.categories = deps.Categories
	b.needsFadeIn = true
}

func (b *base) GUID() uuid.UUID          { return b.guid }
func (b *base) Kind() pack.Type          { return b.kind }
func (b *base) MapID() int               { return b.mapID }
func (b *base) Category() *pack.Category { return b.category }

func (b *base) namespaceInactive() bool {
	if b.categories == nil {
		return false
	}
	return b.categories.IsNamespaceInactive(b.category.Namespace())
}

// Update advances the entity by one tick.
func (b *base) Update(svc *services.Context) {
	if !svc.Settings.GlobalPathablesEnabled.Load() {
		return
	}

	if b.namespaceInactive() {
		if !b.wasInactive {
			logging.EntityDebug("%s: category %s deactivated", b.guid, b.category.Namespace())
			if b.onDeactivated != nil {
				b.onDeactivated()
			}
		}
		b.wasInactive = true
		b.needsFadeIn = true
		return
	}

	if b.wasInactive {
		logging.EntityDebug("%s: category %s activated", b.guid, b.category.Namespace())
		if b.onActivated != nil {
			b.onActivated()
		}
	}
	b.wasInactive = false

	if b.needsFadeIn {
		b.fadeStart.Store(svc.Now().UnixNano())
		b.needsFadeIn = false
	}

	b.updateBehaviors(svc)
}

func (b *base) updateBehaviors(svc *services.Context) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	filtered := false
	for _, bh := range b.behaviors {
		bh.Update(svc)
		if f, ok := bh.(Filter); ok {
			filtered = f.IsFiltered(svc) || filtered
		}
	}
	if b.RawFiltered() != filtered {
		logging.EntityDebug("%s: behavior filter now %t", b.guid, filtered)
	}
	b.filtered.Store(filtered)
}

// BehaviorFiltered reports the OR of the behavior filters, honoured only
// while auto-hide is allowed.
func (b *base) BehaviorFiltered(svc *services.Context) bool {
	return svc.Settings.AllowMarkersToAutomaticallyHide.Load() && b.RawFiltered()
}

// RawFiltered reports the OR of the behavior filters regardless of settings.
func (b *base) RawFiltered() bool {
	return b.filtered.Load()
}

func (b *base) Filtered(svc *services.Context, target RenderTarget) bool {
	s := svc.Settings
	if !s.GlobalPathablesEnabled.Load() {
		return true
	}
	switch target {
	case TargetWorld:
		if !s.WorldPathablesEnabled.Load() {
			return true
		}
	default:
		if !s.MapPathablesEnabled.Load() {
			return true
		}
	}
	if b.namespaceInactive() {
		return true
	}
	return b.BehaviorFiltered(svc)
}

// FadeOpacity returns the fade-in progress at now in [0, 1].
func (b *base) FadeOpacity(now time.Time, duration time.Duration) float32 {
	start := b.fadeStart.Load()
	if start == 0 {
		return 0
	}
	if duration <= 0 {
		return 1
	}
	p := float64(now.UnixNano()-start) / float64(duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return float32(p)
}

func (b *base) Render(svc *services.Context, target RenderTarget) RenderState {
	rs := RenderState{
		Visible: !b.Filtered(svc, target),
		Opacity: b.FadeOpacity(svc.Now(), svc.Settings.FadeInDuration()),
	}
	if b.textures != nil && b.textureRef != "" {
		rs.Texture, _ = b.textures.Get(b.source, b.textureRef)
	}
	return rs
}

// Behaviors returns a copy of the attached behaviors.
func (b *base) Behaviors() []Behavior {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Behavior(nil), b.behaviors...)
}

func (b *base) setBehaviors(bs []Behavior) {
	b.mu.Lock()
	b.behaviors = bs
	b.mu.Unlock()
}

// Unload tears down and detaches every behavior.
func (b *base) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bh := range b.behaviors {
		bh.Unload()
	}
	b.behaviors = nil
}
