package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(zap.New(core), o)
	t.Cleanup(func() { SetRoot(nil, Options{}) })
	return logs
}

func TestGet_NoopBeforeInitialize(t *testing.T) {
	SetRoot(nil, Options{})

	l := Get(CategoryPack)
	require.NotNil(t, l)
	assert.Nil(t, l.sugar)

	// Must not panic.
	l.Info("hello %d", 1)
	l.With("k", "v").Warn("nothing")
}

func TestCategoryFiltering(t *testing.T) {
	logs := observe(t, Options{Categories: map[string]bool{"store": false}})

	Store("dropped")
	Pack("kept %s", "pack")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept pack", entries[0].Message)
	assert.Equal(t, "pack", entries[0].LoggerName)
}

func TestAllCategoriesEnabledByDefault(t *testing.T) {
	logs := observe(t, Options{})

	for _, cat := range []Category{
		CategoryBoot, CategoryStore, CategoryBehavior, CategoryPack,
		CategoryResource, CategoryEntity, CategoryState, CategoryWatcher,
	} {
		Get(cat).Info("message for %s", cat)
	}

	assert.Equal(t, 8, logs.Len())
}

func TestGet_CachesLoggers(t *testing.T) {
	observe(t, Options{})
	assert.Same(t, Get(CategoryEntity), Get(CategoryEntity))
}

func TestWith_AddsFields(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategoryBehavior).With("mode", "daily").Info("interact")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "daily", entries[0].ContextMap()["mode"])
}

func TestInitialize_InvalidLevel(t *testing.T) {
	err := Initialize(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestInitialize_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathing.log")
	require.NoError(t, Initialize(Options{Level: "debug", JSONFormat: true, OutputPath: path}))
	t.Cleanup(func() { SetRoot(nil, Options{}) })

	PackDebug("debug line")
	Sync()
	assert.FileExists(t, path)
}

func TestInitialize_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathing.log")
	require.NoError(t, Initialize(Options{Level: "error", OutputPath: path, Verbose: true}))
	t.Cleanup(func() { SetRoot(nil, Options{}) })

	assert.True(t, Root().Core().Enabled(zapcore.DebugLevel))
	PackDebug("verbose line")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "verbose line")
}

func TestRoot_NoopBeforeInitialize(t *testing.T) {
	SetRoot(nil, Options{})
	require.NotNil(t, Root())
	assert.False(t, Root().Core().Enabled(zapcore.ErrorLevel))
}
