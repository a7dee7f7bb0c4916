// Package logging provides config-driven categorized logging for the pathing core.
// Each subsystem logs under its own category; categories can be switched off
// individually and everything is a no-op until Initialize is called.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config
	CategoryStore    Category = "store"    // Visibility store, persistence
	CategoryBehavior Category = "behavior" // Filter policy decisions and interactions
	CategoryPack     Category = "pack"     // Pack load orchestration
	CategoryResource Category = "resource" // Texture preload and release
	CategoryEntity   Category = "entity"   // Entity construction and update loop
	CategoryState    Category = "state"    // Managed substates
	CategoryWatcher  Category = "watcher"  // Pack file watcher
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string
	JSONFormat bool
	Categories map[string]bool
	OutputPath string
	// Verbose forces debug level regardless of Level.
	Verbose bool
}

// Logger is a category-scoped logger. The zero value discards everything.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	root    *zap.Logger
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the root zap logger from opts. Calling it again
// replaces the root and drops every cached category logger.
func Initialize(o Options) error {
	cfg := zap.NewProductionConfig()
	if !o.JSONFormat {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.DisableStacktrace = true

	level, err := zapcore.ParseLevel(strings.ToLower(defaultString(o.Level, "info")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}
	if o.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	if o.OutputPath != "" {
		cfg.OutputPaths = []string{o.OutputPath}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetRoot(l, o)
	return nil
}

// SetRoot installs an already-built zap logger. Tests use this with zaptest
// and observer cores.
func SetRoot(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
	root = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// Root returns the root zap logger, or a no-op logger before Initialize.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return zap.NewNop()
	}
	return root
}

// Sync flushes the root logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the configured map are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is not initialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if root == nil {
		return &Logger{category: category}
	}
	l := &Logger{
		category: category,
		sugar:    root.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Behavior logs to the behavior category
func Behavior(format string, args ...interface{}) {
	Get(CategoryBehavior).Info(format, args...)
}

// BehaviorDebug logs debug to the behavior category
func BehaviorDebug(format string, args ...interface{}) {
	Get(CategoryBehavior).Debug(format, args...)
}

// Pack logs to the pack category
func Pack(format string, args ...interface{}) {
	Get(CategoryPack).Info(format, args...)
}

// PackDebug logs debug to the pack category
func PackDebug(format string, args ...interface{}) {
	Get(CategoryPack).Debug(format, args...)
}

// PackWarn logs a warning to the pack category
func PackWarn(format string, args ...interface{}) {
	Get(CategoryPack).Warn(format, args...)
}

// Resource logs to the resource category
func Resource(format string, args ...interface{}) {
	Get(CategoryResource).Info(format, args...)
}

// ResourceWarn logs a warning to the resource category
func ResourceWarn(format string, args ...interface{}) {
	Get(CategoryResource).Warn(format, args...)
}

// EntityDebug logs debug to the entity category
func EntityDebug(format string, args ...interface{}) {
	Get(CategoryEntity).Debug(format, args...)
}

// EntityWarn logs a warning to the entity category
func EntityWarn(format string, args ...interface{}) {
	Get(CategoryEntity).Warn(format, args...)
}

// State logs to the state category
func State(format string, args ...interface{}) {
	Get(CategoryState).Info(format, args...)
}

// Watcher logs to the watcher category
func Watcher(format string, args ...interface{}) {
	Get(CategoryWatcher).Info(format, args...)
}

// WatcherWarn logs a warning to the watcher category
func WatcherWarn(format string, args ...interface{}) {
	Get(CategoryWatcher).Warn(format, args...)
}
