// Package store holds the visibility store (which marker keys are hidden and
// until when) and its SQLite persistence.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"pathing/internal/behavior"
	"pathing/internal/logging"
	"pathing/internal/services"
)

// Record is the stored hidden-state for one key. A permanent record hides
// until unload; a timed record hides while now < Expiry.
type Record struct {
	Key       behavior.Key
	Mode      behavior.Mode
	Permanent bool
	Expiry    time.Time
}

// HiddenAt reports whether the record hides its key at now.
func (r Record) HiddenAt(now time.Time) bool {
	return r.Permanent || now.Before(r.Expiry)
}

// Persistence backs the timed records of a VisibilityStore.
type Persistence interface {
	// LoadRecords returns every timed record still hidden at now.
	LoadRecords(ctx context.Context, now time.Time) ([]Record, error)
	UpsertRecord(ctx context.Context, rec Record) error
	// SweepRecords deletes records expired at now and returns how many.
	SweepRecords(ctx context.Context, now time.Time) (int64, error)
}

// VisibilityStore is the TTL-keyed map of hidden markers. Permanent records
// live in memory only; timed records are written through to Persistence.
// Expired records stay semantically absent even before they are swept.
type VisibilityStore struct {
	mu      sync.RWMutex
	records map[behavior.Key]Record

	// Writes that land while a load is reading persistence. They are newer
	// than anything the load reads and win at swap time.
	loading int
	pending map[behavior.Key]Record

	persist Persistence
	clock   services.Clock

	sweepInterval time.Duration
	lastSweep     atomic.Int64 // unix nanos
	sweeping      atomic.Bool
	wg            sync.WaitGroup
}

// Option configures a VisibilityStore.
type Option func(*VisibilityStore)

// WithClock sets the clock used for start/reload sweeps.
func WithClock(c services.Clock) Option {
	return func(s *VisibilityStore) { s.clock = c }
}

// WithSweepInterval sets how often Update sweeps expired records. Zero disables it.
func WithSweepInterval(d time.Duration) Option {
	return func(s *VisibilityStore) { s.sweepInterval = d }
}

// New creates a store. A nil persistence keeps everything in memory.
func New(p Persistence, opts ...Option) *VisibilityStore {
	s := &VisibilityStore{
		records: make(map[behavior.Key]Record),
		persist: p,
		clock:   services.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *VisibilityStore) Name() string { return "behaviors" }

// Start populates the store from persistence.
func (s *VisibilityStore) Start(ctx context.Context) error {
	return s.load(ctx)
}

// Reload drops permanent records and repopulates timed records from persistence.
func (s *VisibilityStore) Reload(ctx context.Context) error {
	return s.load(ctx)
}

func (s *VisibilityStore) load(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.Lock()
	if s.loading == 0 {
		s.pending = make(map[behavior.Key]Record)
	}
	s.loading++
	s.mu.Unlock()
	defer s.endLoad()

	loaded := make(map[behavior.Key]Record)
	if s.persist != nil {
		if swept, err := s.persist.SweepRecords(ctx, now); err != nil {
			return fmt.Errorf("sweep expired records: %w", err)
		} else if swept > 0 {
			logging.StoreDebug("swept %d expired records", swept)
		}

		recs, err := s.persist.LoadRecords(ctx, now)
		if err != nil {
			return fmt.Errorf("load filter records: %w", err)
		}
		for _, r := range recs {
			loaded[r.Key] = r
		}
	} else {
		// Memory only: keep unexpired timed records.
		s.mu.RLock()
		for k, r := range s.records {
			if !r.Permanent && r.HiddenAt(now) {
				loaded[k] = r
			}
		}
		s.mu.RUnlock()
	}

	s.mu.Lock()
	for k, r := range s.pending {
		loaded[k] = r
	}
	kept := len(s.pending)
	s.records = loaded
	s.mu.Unlock()
	s.lastSweep.Store(now.UnixNano())

	if kept > 0 {
		logging.StoreDebug("kept %d records written during load", kept)
	}
	logging.Store("visibility store loaded %d records", len(loaded))
	return nil
}

func (s *VisibilityStore) endLoad() {
	s.mu.Lock()
	s.loading--
	if s.loading == 0 {
		s.pending = nil
	}
	s.mu.Unlock()
}

// put commits rec. Callers hold s.mu.
func (s *VisibilityStore) put(rec Record) {
	s.records[rec.Key] = rec
	if s.pending != nil {
		s.pending[rec.Key] = rec
	}
}

// IsHidden reports whether key is hidden at now.
func (s *VisibilityStore) IsHidden(key behavior.Key, now time.Time) bool {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	return ok && rec.HiddenAt(now)
}

// AddPermanent hides key until unload, replacing any record for it.
func (s *VisibilityStore) AddPermanent(key behavior.Key, mode behavior.Mode) {
	s.mu.Lock()
	s.put(Record{Key: key, Mode: mode, Permanent: true})
	s.mu.Unlock()
}

// AddTimed hides key until expiry, replacing any record for it. The memory
// record is committed even when persisting it fails.
func (s *VisibilityStore) AddTimed(ctx context.Context, key behavior.Key, mode behavior.Mode, expiry time.Time) error {
	rec := Record{Key: key, Mode: mode, Expiry: expiry.UTC()}

	s.mu.Lock()
	s.put(rec)
	s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	if err := s.persist.UpsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("persist record %s: %w", key, err)
	}
	return nil
}

// ClearMode drops the permanent records committed under mode.
func (s *VisibilityStore) ClearMode(mode behavior.Mode) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, r := range s.records {
		if r.Permanent && r.Mode == mode {
			delete(s.records, k)
			n++
		}
	}
	for k, r := range s.pending {
		if r.Permanent && r.Mode == mode {
			delete(s.pending, k)
		}
	}
	return n
}

// Clear drops every in-memory record. Persisted timed records are reloaded
// on the next Start/Reload.
func (s *VisibilityStore) Clear() {
	s.mu.Lock()
	s.records = make(map[behavior.Key]Record)
	s.mu.Unlock()
}

// Sweep removes records expired at now from memory and persistence.
func (s *VisibilityStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	n := 0
	for k, r := range s.records {
		if !r.HiddenAt(now) {
			delete(s.records, k)
			n++
		}
	}
	s.mu.Unlock()
	s.lastSweep.Store(now.UnixNano())

	if s.persist != nil {
		if _, err := s.persist.SweepRecords(ctx, now); err != nil {
			return n, fmt.Errorf("sweep persisted records: %w", err)
		}
	}
	return n, nil
}

// Update runs housekeeping from the per-tick loop. It never blocks: a due
// sweep runs in the background and at most one runs at a time.
func (s *VisibilityStore) Update(now time.Time) {
	if s.sweepInterval <= 0 {
		return
	}
	if now.Sub(time.Unix(0, s.lastSweep.Load())) < s.sweepInterval {
		return
	}
	if !s.sweeping.CompareAndSwap(false, true) {
		return
	}

	s.lastSweep.Store(now.UnixNano())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sweeping.Store(false)

		n, err := s.Sweep(context.Background(), now)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("background sweep failed: %v", err)
			return
		}
		if n > 0 {
			logging.StoreDebug("background sweep removed %d records", n)
		}
	}()
}

// Close waits for any background sweep to finish.
func (s *VisibilityStore) Close() {
	s.wg.Wait()
}

// Record returns the raw record for key, expired or not.
func (s *VisibilityStore) Record(key behavior.Key) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	return r, ok
}

// Records returns every in-memory record ordered by key.
func (s *VisibilityStore) Records() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
