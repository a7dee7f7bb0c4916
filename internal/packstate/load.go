package packstate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pathing/internal/entity"
	"pathing/internal/logging"
	"pathing/internal/pack"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ItemFailure records a point of interest that could not be built.
type ItemFailure struct {
	GUID uuid.UUID
	Type pack.Type
	Err  error
}

// LoadResult summarizes a completed load.
type LoadResult struct {
	Published       int
	PreloadFailures int
	Failures        []ItemFailure
	Duration        time.Duration
}

// Load installs collection: it replaces the category tree, syncs every
// managed substate, preloads resources, builds the entities and publishes
// them as one batch. Only one load runs at a time; callers arriving while a
// load is in flight wait for it. Per-item failures are reported in the
// result, substate failures abort the load.
func (s *SharedState) Load(ctx context.Context, collection *pack.Collection) (*LoadResult, error) {
	if collection == nil {
		return nil, ErrNilCollection
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	s.phase.Store(int32(PhaseLoading))

	start := time.Now()
	s.root.Store(collection.Categories)

	if err := s.syncSubstates(ctx); err != nil {
		logging.PackWarn("pack load aborted: %v", err)
		return nil, fmt.Errorf("pack load failed: %w", err)
	}

	pois := collection.PointsOfInterest

	preloadFailures, err := s.preload(ctx, pois)
	if err != nil {
		logging.PackWarn("pack load cancelled during preload: %v", err)
		return nil, fmt.Errorf("pack load cancelled during preload: %w", err)
	}

	batch, failures, err := s.construct(ctx, pois)
	if err != nil {
		logging.PackWarn("pack load cancelled during construction: %v", err)
		return nil, fmt.Errorf("pack load cancelled during construction: %w", err)
	}

	s.entities.Publish(batch)
	if s.renderer != nil {
		s.renderer.AddEntities(batch)
	}

	res := &LoadResult{
		Published:       len(batch),
		PreloadFailures: preloadFailures,
		Failures:        failures,
		Duration:        time.Since(start),
	}
	logging.Pack("pack loaded: %d entities published, %d failed, %d resources missing (%s)",
		res.Published, len(res.Failures), res.PreloadFailures, res.Duration)
	return res, nil
}

// syncSubstates starts every substate in order on the first load and
// reloads them all concurrently afterwards.
func (s *SharedState) syncSubstates(ctx context.Context) error {
	if !s.initialized {
		for _, sub := range s.substates {
			if err := sub.Start(ctx); err != nil {
				return fmt.Errorf("start %s: %w", sub.Name(), err)
			}
		}
		s.initialized = true
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range s.substates {
		g.Go(func() error {
			if err := sub.Reload(gctx); err != nil {
				return fmt.Errorf("reload %s: %w", sub.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// preload loads every resource the batch needs. Missing resources are
// logged and counted; only cancellation fails the phase.
func (s *SharedState) preload(ctx context.Context, pois []*pack.PointOfInterest) (int, error) {
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, poi := range pois {
		ref, ok := entity.TextureRef(poi)
		if !ok || ref == "" {
			continue
		}
		g.Go(func() error {
			if err := s.textures.Preload(gctx, poi.Source, ref); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logging.ResourceWarn("preload %q for %s failed: %v", ref, poi.GUID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(failed.Load()), err
	}
	return int(failed.Load()), nil
}

// construct builds one entity per point of interest. A failing item is
// dropped from the batch without affecting the others.
func (s *SharedState) construct(ctx context.Context, pois []*pack.PointOfInterest) ([]entity.Entity, []ItemFailure, error) {
	built := make([]entity.Entity, len(pois))
	errs := make([]error, len(pois))
	deps := s.deps()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, poi := range pois {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i], errs[i] = s.buildOne(poi, deps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	batch := make([]entity.Entity, 0, len(pois))
	var failures []ItemFailure
	for i, poi := range pois {
		if errs[i] != nil {
			failures = append(failures, ItemFailure{GUID: poi.GUID, Type: poi.Type, Err: errs[i]})
			logging.EntityWarn("skipping %s: %v", poi.GUID, errs[i])
			continue
		}
		batch = append(batch, built[i])
	}
	return batch, failures, nil
}

func (s *SharedState) buildOne(poi *pack.PointOfInterest, deps entity.Deps) (e entity.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("building %s panicked: %v", poi.GUID, r)
		}
	}()
	return s.build(poi, deps)
}

// Unload tears down every live entity, clears the set and the category
// tree, and releases cached resources. It waits for an in-flight load.
func (s *SharedState) Unload(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.phase.Store(int32(PhaseTearingDown))

	removed := s.entities.Snapshot()
	for _, e := range removed {
		e.Unload()
	}
	s.entities.Clear()
	if s.renderer != nil {
		s.renderer.RemoveEntities(removed)
	}

	s.root.Store(nil)
	s.textures.Unload()
	s.visibility.Clear()

	logging.Pack("pack unloaded: %d entities removed", len(removed))
	return nil
}

// Close waits for background work of the managed stores.
func (s *SharedState) Close() {
	s.visibility.Close()
}
