// Package services holds the runtime context threaded through load, update
// and render calls: the clock, the active player and the user settings.
// It is built once at startup and passed explicitly instead of being
// reached for through globals.
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock provides wall-clock time. Implementations must return UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock provides a controllable time source for testing.
type ManualClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start.UTC()}
}

// Now returns the current mocked time.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Player reports the active character.
type Player interface {
	CharacterName() string
}

// StaticPlayer is a Player whose name can be swapped at runtime.
type StaticPlayer struct {
	name atomic.Value
}

// NewStaticPlayer returns a player named name.
func NewStaticPlayer(name string) *StaticPlayer {
	p := &StaticPlayer{}
	p.name.Store(name)
	return p
}

func (p *StaticPlayer) CharacterName() string {
	v, _ := p.name.Load().(string)
	return v
}

// SetCharacterName switches the active character.
func (p *StaticPlayer) SetCharacterName(name string) {
	p.name.Store(name)
}

// Settings are the user toggles read every tick. All fields are safe for
// concurrent use.
type Settings struct {
	GlobalPathablesEnabled          atomic.Bool
	WorldPathablesEnabled           atomic.Bool
	MapPathablesEnabled             atomic.Bool
	AllowMarkersToAutomaticallyHide atomic.Bool

	fadeIn atomic.Int64
}

// DefaultFadeInDuration is used when no fade duration is configured.
const DefaultFadeInDuration = 800 * time.Millisecond

// NewSettings returns settings with everything enabled.
func NewSettings() *Settings {
	s := &Settings{}
	s.GlobalPathablesEnabled.Store(true)
	s.WorldPathablesEnabled.Store(true)
	s.MapPathablesEnabled.Store(true)
	s.AllowMarkersToAutomaticallyHide.Store(true)
	s.fadeIn.Store(int64(DefaultFadeInDuration))
	return s
}

// FadeInDuration returns the entity fade-in duration.
func (s *Settings) FadeInDuration() time.Duration {
	return time.Duration(s.fadeIn.Load())
}

// SetFadeInDuration changes the fade-in duration; non-positive values are ignored.
func (s *Settings) SetFadeInDuration(d time.Duration) {
	if d > 0 {
		s.fadeIn.Store(int64(d))
	}
}

// Context bundles the runtime services.
type Context struct {
	Clock    Clock
	Player   Player
	Settings *Settings
}

// New builds a Context, filling nil members with defaults.
func New(clock Clock, player Player, settings *Settings) *Context {
	if clock == nil {
		clock = SystemClock{}
	}
	if player == nil {
		player = NewStaticPlayer("")
	}
	if settings == nil {
		settings = NewSettings()
	}
	return &Context{Clock: clock, Player: player, Settings: settings}
}

// Now is shorthand for c.Clock.Now().
func (c *Context) Now() time.Time {
	return c.Clock.Now()
}
