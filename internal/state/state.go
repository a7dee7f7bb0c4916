// Package state defines the reloadable state modules the pack orchestrator
// manages, and the concrete ones the core ships with.
package state

import (
	"context"
	"time"
)

// Substate is a reloadable state module. Start runs on the first pack load,
// Reload on every later one; both must finish before entities are built.
// Reload must not assume anything about the order siblings reload in.
type Substate interface {
	Name() string
	Start(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Updater is implemented by substates with per-tick housekeeping. Update
// must not block.
type Updater interface {
	Update(now time.Time)
}
