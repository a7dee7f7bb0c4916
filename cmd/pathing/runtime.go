package main

import (
	"context"
	"fmt"

	"pathing/internal/config"
	"pathing/internal/packstate"
	"pathing/internal/services"
	"pathing/internal/state"
	"pathing/internal/store"

	"go.uber.org/zap"
)

// overlay bundles everything a command needs to drive the pack core.
type overlay struct {
	db       *store.SQLite
	svc      *services.Context
	shared   *packstate.SharedState
	userRes  *state.UserResources
	renderer *logRenderer
}

func newServices(c *config.Config) *services.Context {
	settings := services.NewSettings()
	settings.GlobalPathablesEnabled.Store(c.Display.GlobalPathablesEnabled)
	settings.WorldPathablesEnabled.Store(c.Display.WorldPathablesEnabled)
	settings.MapPathablesEnabled.Store(c.Display.MapPathablesEnabled)
	settings.AllowMarkersToAutomaticallyHide.Store(c.Display.AllowMarkersToAutomaticallyHide)
	settings.SetFadeInDuration(c.GetFadeInDuration())

	return services.New(services.SystemClock{}, services.NewStaticPlayer(c.Player.CharacterName), settings)
}

// openStore opens the visibility database and a store on top of it.
func openStore(c *config.Config, svc *services.Context) (*store.SQLite, *store.VisibilityStore, error) {
	db, err := store.OpenSQLite(c.Store.Driver, c.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	vs := store.New(db,
		store.WithClock(svc.Clock),
		store.WithSweepInterval(c.GetSweepInterval()),
	)
	return db, vs, nil
}

func openOverlay(c *config.Config) (*overlay, error) {
	svc := newServices(c)
	db, vs, err := openStore(c, svc)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	o := &overlay{
		db:       db,
		svc:      svc,
		userRes:  state.NewUserResources(c.Resources.Directory),
		renderer: &logRenderer{},
	}
	o.shared = packstate.New(packstate.Config{
		Services:            svc,
		Renderer:            o.renderer,
		Visibility:          vs,
		CategoryPersistence: db,
		Substates:           []state.Substate{o.userRes},
		Parallelism:         c.Loader.Parallelism,
		LoadWaitTimeout:     c.GetLoadWaitTimeout(),
	})

	logger.Debug("overlay opened",
		zap.String("db", db.Path()),
		zap.String("driver", c.Store.Driver),
		zap.String("character", c.Player.CharacterName))
	return o, nil
}

// Close unloads the active pack and closes the database.
func (o *overlay) Close() {
	if err := o.shared.Unload(context.Background()); err != nil {
		logger.Warn("unload failed", zap.Error(err))
	}
	o.shared.Close()
	if err := o.db.Close(); err != nil {
		logger.Warn("close store failed", zap.Error(err))
	}
}
