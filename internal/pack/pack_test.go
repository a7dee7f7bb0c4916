package pack

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
categories:
  - name: Tyria
    attributes:
      behavior: "2"
    children:
      - name: Waypoints
        attributes:
          iconfile: icons/wp.png
      - name: Vistas
points_of_interest:
  - type: marker
    guid: 6a3a2f44-5d9e-4b6f-9a51-2d4f2b1e7c10
    map_id: 15
    category: tyria.waypoints
  - type: trail
    guid: bmV2ZXIgZ29ubmEgZ2l2ZQ==
    map_id: 15
    category: tyria.vistas
    attributes:
      texture: trails/arrow.png
  - type: beacon
    guid: 0b9f7d3e-1111-4c2a-8e5f-aa00bb11cc22
    map_id: 50
    category: nowhere.at.all
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(manifest), NewDirSource(t.TempDir()))
	require.NoError(t, err)

	require.Len(t, c.Categories.Children, 1)
	require.Len(t, c.PointsOfInterest, 3)

	wp := c.PointsOfInterest[0]
	assert.Equal(t, TypeMarker, wp.Type)
	assert.Equal(t, "tyria.waypoints", wp.Category.Namespace())
	assert.Equal(t, 15, wp.MapID)

	icon, ok := wp.AggregatedAttribute("iconfile")
	require.True(t, ok)
	assert.Equal(t, "icons/wp.png", icon)

	mode, ok := wp.AggregatedAttribute("Behavior")
	require.True(t, ok, "inherited from tyria")
	assert.Equal(t, "2", mode)

	trail := c.PointsOfInterest[1]
	assert.Equal(t, TypeTrail, trail.Type)
	raw, _ := base64.StdEncoding.DecodeString("bmV2ZXIgZ29ubmEgZ2l2ZQ==")
	assert.Equal(t, uuid.UUID(raw), trail.GUID)

	unknown := c.PointsOfInterest[2]
	assert.Equal(t, TypeUnknown, unknown.Type)
	assert.Same(t, c.Categories, unknown.Category, "unresolved categories fall back to root")
}

func TestParse_BadGUID(t *testing.T) {
	_, err := Parse([]byte("points_of_interest:\n  - type: marker\n    guid: nope\n"), nil)
	assert.Error(t, err)

	_, err = Parse([]byte("points_of_interest:\n  - type: marker\n"), nil)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeMarker, ParseType("POI"))
	assert.Equal(t, TypeRoute, ParseType(" route "))
	assert.Equal(t, TypeUnknown, ParseType(""))
	assert.Equal(t, "unknown", TypeUnknown.String())
}

func TestCategoryWalkAndFind(t *testing.T) {
	root := &Category{}
	a := root.AddChild(&Category{Name: "A"})
	a.AddChild(&Category{Name: "B"})

	var names []string
	root.Walk(func(c *Category) { names = append(names, c.Namespace()) })
	assert.Equal(t, []string{"", "a", "a.b"}, names)

	found, ok := root.Find("A.B")
	require.True(t, ok)
	assert.Equal(t, "B", found.Name)

	_, ok = root.Find("a.c")
	assert.False(t, ok)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "icons"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icons", "wp.png"), []byte("png"), 0644))

	src := NewDirSource(dir)
	data, err := src.Open(`icons\wp.png`)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = src.Open("../escape.png")
	assert.Error(t, err)

	_, err = src.Open("icons/missing.png")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	c, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, c.PointsOfInterest, 3)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, c.PointsOfInterest[0].Source.ID())
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	var calls atomic.Int32
	w, err := NewWatcher(path, 100*time.Millisecond, func(context.Context, string) {
		calls.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))
	}
	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
