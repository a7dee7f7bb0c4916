package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all pathing configuration.
type Config struct {
	Name string `yaml:"name"`

	// Visibility store persistence
	Store StoreConfig `yaml:"store"`

	// Pack load orchestration
	Loader LoaderConfig `yaml:"loader"`

	// User-facing display toggles
	Display DisplayConfig `yaml:"display"`

	// Active character
	Player PlayerConfig `yaml:"player"`

	// User resource files (static.yaml)
	Resources ResourcesConfig `yaml:"resources"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the visibility store database.
type StoreConfig struct {
	Driver        string `yaml:"driver"` // sqlite (pure Go), sqlite3 (cgo)
	Path          string `yaml:"path"`
	SweepInterval string `yaml:"sweep_interval"`
}

// LoaderConfig configures the pack load orchestrator.
type LoaderConfig struct {
	// Parallelism bounds preload and construction fan-out. 0 = GOMAXPROCS.
	Parallelism     int    `yaml:"parallelism"`
	LoadWaitTimeout string `yaml:"load_wait_timeout"`
	WatchDebounce   string `yaml:"watch_debounce"`
	TickRate        string `yaml:"tick_rate"`
}

// DisplayConfig mirrors the module settings the update loop consults.
type DisplayConfig struct {
	GlobalPathablesEnabled          bool   `yaml:"global_pathables_enabled"`
	WorldPathablesEnabled           bool   `yaml:"world_pathables_enabled"`
	MapPathablesEnabled             bool   `yaml:"map_pathables_enabled"`
	AllowMarkersToAutomaticallyHide bool   `yaml:"allow_markers_to_automatically_hide"`
	FadeInDuration                  string `yaml:"fade_in_duration"`
}

// PlayerConfig identifies the active character.
type PlayerConfig struct {
	CharacterName string `yaml:"character_name"`
}

// ResourcesConfig locates user resource files.
type ResourcesConfig struct {
	Directory string `yaml:"directory"`
}

// envOverrides lists the environment variables that win over the file.
type envOverrides struct {
	DBPath    string `env:"PATHING_DB"`
	DBDriver  string `env:"PATHING_DB_DRIVER"`
	Character string `env:"PATHING_CHARACTER"`
	LogLevel  string `env:"PATHING_LOG_LEVEL"`
}

// ValidDrivers lists the registered database/sql driver names.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "pathing",

		Store: StoreConfig{
			Driver:        "sqlite",
			Path:          "data/pathing.db",
			SweepInterval: "10m",
		},

		Loader: LoaderConfig{
			Parallelism:     0,
			LoadWaitTimeout: "30s",
			WatchDebounce:   "500ms",
			TickRate:        "16ms",
		},

		Display: DisplayConfig{
			GlobalPathablesEnabled:          true,
			WorldPathablesEnabled:           true,
			MapPathablesEnabled:             true,
			AllowMarkersToAutomaticallyHide: true,
			FadeInDuration:                  "800ms",
		},

		Resources: ResourcesConfig{
			Directory: "data/user",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.DBPath != "" {
		c.Store.Path = o.DBPath
	}
	if o.DBDriver != "" {
		c.Store.Driver = o.DBDriver
	}
	if o.Character != "" {
		c.Player.CharacterName = o.Character
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path not configured (set store.path or PATHING_DB)")
	}
	if c.Loader.Parallelism < 0 {
		return fmt.Errorf("loader parallelism must be >= 0, got %d", c.Loader.Parallelism)
	}
	for name, raw := range map[string]string{
		"store.sweep_interval":     c.Store.SweepInterval,
		"loader.load_wait_timeout": c.Loader.LoadWaitTimeout,
		"loader.watch_debounce":    c.Loader.WatchDebounce,
		"loader.tick_rate":         c.Loader.TickRate,
		"display.fade_in_duration": c.Display.FadeInDuration,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	return nil
}

// GetSweepInterval returns the expired-record sweep interval.
func (c *Config) GetSweepInterval() time.Duration {
	return parseDuration(c.Store.SweepInterval, 10*time.Minute)
}

// GetLoadWaitTimeout returns how long a load waits for an in-flight load.
func (c *Config) GetLoadWaitTimeout() time.Duration {
	return parseDuration(c.Loader.LoadWaitTimeout, 30*time.Second)
}

// GetWatchDebounce returns the pack watcher debounce window.
func (c *Config) GetWatchDebounce() time.Duration {
	return parseDuration(c.Loader.WatchDebounce, 500*time.Millisecond)
}

// GetTickRate returns the update loop period.
func (c *Config) GetTickRate() time.Duration {
	return parseDuration(c.Loader.TickRate, 16*time.Millisecond)
}

// GetFadeInDuration returns the entity fade-in duration.
func (c *Config) GetFadeInDuration() time.Duration {
	return parseDuration(c.Display.FadeInDuration, 800*time.Millisecond)
}

func parseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
