package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pathing/internal/behavior"
	"pathing/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(DriverPureGo, filepath.Join(t.TempDir(), "pathing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIsHidden_NeverFiltered(t *testing.T) {
	s := New(nil)
	for i := 0; i < 10; i++ {
		assert.False(t, s.IsHidden(uuid.New(), t0))
	}
}

func TestAddPermanent_IgnoresClock(t *testing.T) {
	s := New(nil)
	k := uuid.New()
	s.AddPermanent(k, behavior.OncePerInstance)

	for _, d := range []time.Duration{0, time.Hour, 24 * 365 * time.Hour} {
		assert.True(t, s.IsHidden(k, t0.Add(d)))
	}

	s.Clear()
	assert.False(t, s.IsHidden(k, t0))
}

func TestAddTimed_Boundary(t *testing.T) {
	s := New(nil)
	k := uuid.New()
	expiry := t0.Add(time.Hour)
	require.NoError(t, s.AddTimed(context.Background(), k, behavior.ReappearAfterTimer, expiry))

	assert.True(t, s.IsHidden(k, t0))
	assert.True(t, s.IsHidden(k, expiry.Add(-time.Nanosecond)))
	assert.False(t, s.IsHidden(k, expiry))
	assert.False(t, s.IsHidden(k, expiry.Add(time.Hour)))
}

func TestLastWriteWins(t *testing.T) {
	s := New(nil)
	k := uuid.New()

	s.AddPermanent(k, behavior.ReappearOnMapChange)
	require.NoError(t, s.AddTimed(context.Background(), k, behavior.ReappearAfterTimer, t0.Add(time.Minute)))
	assert.False(t, s.IsHidden(k, t0.Add(2*time.Minute)), "timed record replaces permanent")

	require.NoError(t, s.AddTimed(context.Background(), k, behavior.ReappearAfterTimer, t0.Add(time.Hour)))
	require.NoError(t, s.AddTimed(context.Background(), k, behavior.ReappearAfterTimer, t0.Add(time.Second)))
	assert.False(t, s.IsHidden(k, t0.Add(time.Minute)), "later, shorter timer wins")
}

func TestClearMode(t *testing.T) {
	s := New(nil)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	s.AddPermanent(a, behavior.ReappearOnMapChange)
	s.AddPermanent(b, behavior.OncePerInstance)
	require.NoError(t, s.AddTimed(context.Background(), c, behavior.ReappearAfterTimer, t0.Add(time.Hour)))

	assert.Equal(t, 1, s.ClearMode(behavior.ReappearOnMapChange))
	assert.False(t, s.IsHidden(a, t0))
	assert.True(t, s.IsHidden(b, t0))
	assert.True(t, s.IsHidden(c, t0))
}

func TestStartReload_WithSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	clock := services.NewManualClock(t0)

	s := New(db, WithClock(clock))
	require.NoError(t, s.Start(ctx))

	live, expiring, perm := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, s.AddTimed(ctx, live, behavior.ReappearAfterTimer, t0.Add(24*time.Hour)))
	require.NoError(t, s.AddTimed(ctx, expiring, behavior.ReappearAfterTimer, t0.Add(time.Minute)))
	s.AddPermanent(perm, behavior.OnlyVisibleBeforeActivation)

	clock.Advance(time.Hour)
	require.NoError(t, s.Reload(ctx))

	assert.True(t, s.IsHidden(live, clock.Now()))
	assert.False(t, s.IsHidden(expiring, clock.Now()))
	assert.False(t, s.IsHidden(perm, clock.Now()), "reload drops permanent records")

	// A fresh store over the same database sees the persisted record.
	fresh := New(db, WithClock(clock))
	require.NoError(t, fresh.Start(ctx))
	require.Len(t, fresh.Records(), 1)
	assert.Equal(t, live, fresh.Records()[0].Key)

	// The expired row was swept from the table during reload.
	n, err := db.SweepRecords(ctx, clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReload_MemoryOnlyKeepsTimedRecords(t *testing.T) {
	clock := services.NewManualClock(t0)
	s := New(nil, WithClock(clock))

	timed := uuid.New()
	require.NoError(t, s.AddTimed(context.Background(), timed, behavior.ReappearAfterTimer, t0.Add(time.Hour)))
	s.AddPermanent(uuid.New(), behavior.OncePerInstance)

	require.NoError(t, s.Reload(context.Background()))
	require.Len(t, s.Records(), 1)
	assert.Equal(t, timed, s.Records()[0].Key)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := New(db)

	gone, kept := uuid.New(), uuid.New()
	require.NoError(t, s.AddTimed(ctx, gone, behavior.ReappearAfterTimer, t0.Add(time.Minute)))
	require.NoError(t, s.AddTimed(ctx, kept, behavior.ReappearAfterTimer, t0.Add(time.Hour)))
	s.AddPermanent(uuid.New(), behavior.OncePerInstance)

	n, err := s.Sweep(ctx, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Records(), 2)

	recs, err := db.LoadRecords(ctx, t0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, kept, recs[0].Key)
}

func TestUpdate_BackgroundSweep(t *testing.T) {
	s := New(nil, WithSweepInterval(time.Minute))
	require.NoError(t, s.AddTimed(context.Background(), uuid.New(), behavior.ReappearAfterTimer, t0.Add(time.Second)))

	s.Update(t0.Add(2 * time.Minute))
	s.Close()

	assert.Empty(t, s.Records())
}

func TestUpdate_DisabledWithoutInterval(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddTimed(context.Background(), uuid.New(), behavior.ReappearAfterTimer, t0.Add(time.Second)))

	s.Update(t0.Add(time.Hour))
	s.Close()

	assert.Len(t, s.Records(), 1)
}

type failingPersistence struct{ err error }

func (f failingPersistence) LoadRecords(context.Context, time.Time) ([]Record, error) {
	return nil, f.err
}
func (f failingPersistence) UpsertRecord(context.Context, Record) error { return f.err }
func (f failingPersistence) SweepRecords(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

func TestPersistenceErrors(t *testing.T) {
	boom := errors.New("disk gone")
	s := New(failingPersistence{err: boom})

	assert.ErrorIs(t, s.Start(context.Background()), boom)

	k := uuid.New()
	err := s.AddTimed(context.Background(), k, behavior.ReappearAfterTimer, t0.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.IsHidden(k, t0), "memory record committed despite persistence failure")
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New(nil)
	keys := make([]uuid.UUID, 32)
	for i := range keys {
		keys[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for _, k := range keys {
				s.AddPermanent(k, behavior.OncePerInstance)
			}
		}()
		go func() {
			defer wg.Done()
			for _, k := range keys {
				_ = s.IsHidden(k, t0)
			}
		}()
	}
	wg.Wait()

	for _, k := range keys {
		assert.True(t, s.IsHidden(k, t0))
	}
}

// gatedPersistence blocks LoadRecords until release is closed.
type gatedPersistence struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPersistence) LoadRecords(ctx context.Context, _ time.Time) ([]Record, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}
func (g *gatedPersistence) UpsertRecord(context.Context, Record) error { return nil }
func (g *gatedPersistence) SweepRecords(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestReload_KeepsWritesMadeDuringLoad(t *testing.T) {
	p := &gatedPersistence{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(p, WithClock(services.NewManualClock(t0)))

	done := make(chan error, 1)
	go func() { done <- s.Reload(context.Background()) }()
	<-p.entered

	timed, perm := uuid.New(), uuid.New()
	require.NoError(t, s.AddTimed(context.Background(), timed, behavior.ReappearAfterTimer, t0.Add(time.Hour)))
	s.AddPermanent(perm, behavior.OncePerInstance)
	assert.True(t, s.IsHidden(timed, t0))

	close(p.release)
	require.NoError(t, <-done)

	assert.True(t, s.IsHidden(timed, t0), "timed write during reload survives the swap")
	assert.True(t, s.IsHidden(perm, t0), "permanent write during reload survives the swap")
	assert.Len(t, s.Records(), 2)

	// Writes after the load are not carried into the next one.
	require.NoError(t, s.Reload(context.Background()))
	assert.False(t, s.IsHidden(perm, t0))
}
