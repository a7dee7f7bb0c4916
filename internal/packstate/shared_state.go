// Package packstate orchestrates marker pack loads: it owns the live entity
// set and the active category tree, keeps the managed substates in step, and
// runs the per-tick update over every live entity.
package packstate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"pathing/internal/behavior"
	"pathing/internal/entity"
	"pathing/internal/logging"
	"pathing/internal/pack"
	"pathing/internal/resource"
	"pathing/internal/services"
	"pathing/internal/state"
	"pathing/internal/store"

	"github.com/google/uuid"
)

var (
	// ErrLoadInProgress is returned when waiting for an in-flight load was
	// cancelled or timed out.
	ErrLoadInProgress = errors.New("pack load in progress")
	// ErrEntityNotFound is returned when no live entity has the given GUID.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrNilCollection is returned by Load when given no collection.
	ErrNilCollection = errors.New("nil pack collection")
)

// Phase is the orchestrator state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseTearingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseTearingDown:
		return "tearing_down"
	}
	return "idle"
}

// Renderer receives published batches and removed entities.
type Renderer interface {
	AddEntities(batch []entity.Entity)
	RemoveEntities(removed []entity.Entity)
}

// BuildFunc constructs one entity.
type BuildFunc func(poi *pack.PointOfInterest, deps entity.Deps) (entity.Entity, error)

// Config wires a SharedState.
type Config struct {
	Services   *services.Context
	Renderer   Renderer
	Visibility *store.VisibilityStore
	// CategoryPersistence backs category toggles; nil keeps them in memory.
	CategoryPersistence state.CategoryPersistence
	// Substates are managed after the category and behavior states.
	Substates []state.Substate

	// Parallelism bounds preload and construction; 0 = GOMAXPROCS.
	Parallelism int
	// LoadWaitTimeout bounds how long Load and Unload wait for an in-flight
	// load; 0 waits until ctx is done.
	LoadWaitTimeout time.Duration

	Build BuildFunc
}

// SharedState is the pack load orchestrator.
type SharedState struct {
	svc      *services.Context
	renderer Renderer

	visibility *store.VisibilityStore
	categories *state.CategoryStates
	policy     *behavior.Policy
	textures   *resource.Cache
	substates  []state.Substate

	root     atomic.Pointer[pack.Category]
	entities *entity.Set
	phase    atomic.Int32
	mapID    atomic.Int32

	loadSem     chan struct{}
	initialized bool // guarded by loadSem

	parallelism int
	waitTimeout time.Duration
	build       BuildFunc
}

// New builds a SharedState.
func New(cfg Config) *SharedState {
	s := &SharedState{
		svc:         cfg.Services,
		renderer:    cfg.Renderer,
		visibility:  cfg.Visibility,
		textures:    resource.NewCache(),
		entities:    entity.NewSet(),
		loadSem:     make(chan struct{}, 1),
		parallelism: cfg.Parallelism,
		waitTimeout: cfg.LoadWaitTimeout,
		build:       cfg.Build,
	}
	if s.svc == nil {
		s.svc = services.New(nil, nil, nil)
	}
	if s.visibility == nil {
		s.visibility = store.New(nil, store.WithClock(s.svc.Clock))
	}
	if s.parallelism <= 0 {
		s.parallelism = runtime.GOMAXPROCS(0)
	}
	if s.build == nil {
		s.build = entity.Build
	}

	s.policy = behavior.NewPolicy(s.visibility)
	s.categories = state.NewCategoryStates(s.RootCategory, cfg.CategoryPersistence)
	s.substates = append([]state.Substate{s.categories, s.visibility}, cfg.Substates...)
	return s
}

// Services returns the runtime context.
func (s *SharedState) Services() *services.Context { return s.svc }

// RootCategory returns the active category tree, nil when nothing is loaded.
func (s *SharedState) RootCategory() *pack.Category { return s.root.Load() }

// Entities returns a snapshot of the live entity set.
func (s *SharedState) Entities() []entity.Entity { return s.entities.Snapshot() }

// Phase returns the current orchestrator phase.
func (s *SharedState) Phase() Phase { return Phase(s.phase.Load()) }

// Visibility returns the visibility store.
func (s *SharedState) Visibility() *store.VisibilityStore { return s.visibility }

// Categories returns the category toggle state.
func (s *SharedState) Categories() *state.CategoryStates { return s.categories }

// Textures returns the texture cache.
func (s *SharedState) Textures() *resource.Cache { return s.textures }

// CurrentMap returns the last map passed to ChangeMap.
func (s *SharedState) CurrentMap() int { return int(s.mapID.Load()) }

func (s *SharedState) deps() entity.Deps {
	return entity.Deps{
		Policy:     s.policy,
		Categories: s.categories,
		Textures:   s.textures,
		Root:       s.RootCategory,
	}
}

// acquire takes the load lock. Waiters are not served in any particular order.
func (s *SharedState) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadInProgress, err)
	}
	select {
	case s.loadSem <- struct{}{}:
		return nil
	default:
	}

	waitCtx := ctx
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	logging.PackDebug("waiting for in-flight pack load")
	select {
	case s.loadSem <- struct{}{}:
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("%w: %w", ErrLoadInProgress, waitCtx.Err())
	}
}

func (s *SharedState) release() {
	s.phase.Store(int32(PhaseIdle))
	<-s.loadSem
}

// Update runs one tick: substate housekeeping, then every live entity.
// It must be called from a single goroutine and never blocks.
func (s *SharedState) Update() {
	now := s.svc.Now()
	for _, sub := range s.substates {
		if u, ok := sub.(state.Updater); ok {
			u.Update(now)
		}
	}
	for _, e := range s.entities.Snapshot() {
		e.Update(s.svc)
	}
}

// InteractFocused is the interact key: every focused marker interacts.
// It returns how many markers interacted.
func (s *SharedState) InteractFocused(ctx context.Context) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, e := range s.entities.Snapshot() {
		m, ok := e.(*entity.Marker)
		if !ok || !m.Focused() {
			continue
		}
		n++
		if err := m.Interact(ctx, s.svc, false); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// Interact interacts with the live entity identified by guid.
func (s *SharedState) Interact(ctx context.Context, guid uuid.UUID) error {
	for _, e := range s.entities.Snapshot() {
		if e.GUID() == guid {
			return e.Interact(ctx, s.svc, false)
		}
	}
	return fmt.Errorf("%s: %w", guid, ErrEntityNotFound)
}

// ChangeMap records the current map and makes ReappearOnMapChange markers
// visible again.
func (s *SharedState) ChangeMap(mapID int) {
	prev := s.mapID.Swap(int32(mapID))
	if int(prev) == mapID {
		return
	}
	n := s.visibility.ClearMode(behavior.ReappearOnMapChange)
	logging.Pack("map changed %d -> %d, %d markers reappear", prev, mapID, n)
}

// SetCategoryInactive toggles a category namespace.
func (s *SharedState) SetCategoryInactive(ctx context.Context, namespace string, inactive bool) error {
	return s.categories.SetInactive(ctx, namespace, inactive)
}
