package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pathing/internal/pack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCategories struct {
	states map[string]bool
	err    error
}

func (m *memCategories) LoadCategoryStates(context.Context) (map[string]bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]bool, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out, nil
}

func (m *memCategories) SaveCategoryState(_ context.Context, ns string, inactive bool) error {
	if m.err != nil {
		return m.err
	}
	m.states[ns] = inactive
	return nil
}

func testTree() *pack.Category {
	root := &pack.Category{}
	tyria := root.AddChild(&pack.Category{Name: "tyria"})
	tyria.AddChild(&pack.Category{Name: "waypoints"})
	tyria.AddChild(&pack.Category{Name: "secrets", Attributes: pack.Attributes{"defaulttoggle": "false"}})
	return root
}

var _ Substate = (*CategoryStates)(nil)
var _ Substate = (*UserResources)(nil)

func TestCategoryStates_AncestorDisablesChildren(t *testing.T) {
	tree := testTree()
	persist := &memCategories{states: map[string]bool{"tyria": true}}
	cs := NewCategoryStates(func() *pack.Category { return tree }, persist)
	require.NoError(t, cs.Start(context.Background()))

	assert.True(t, cs.IsNamespaceInactive("tyria"))
	assert.True(t, cs.IsNamespaceInactive("tyria.waypoints"))
	assert.False(t, cs.IsNamespaceInactive(""))
}

func TestCategoryStates_DefaultToggle(t *testing.T) {
	tree := testTree()
	persist := &memCategories{states: map[string]bool{}}
	cs := NewCategoryStates(func() *pack.Category { return tree }, persist)
	require.NoError(t, cs.Start(context.Background()))

	assert.True(t, cs.IsNamespaceInactive("tyria.secrets"))
	assert.False(t, cs.IsNamespaceInactive("tyria.waypoints"))

	require.NoError(t, cs.SetInactive(context.Background(), "Tyria.Secrets", false))
	assert.False(t, cs.IsNamespaceInactive("tyria.secrets"), "explicit toggle overrides default")
	assert.Equal(t, false, persist.states["tyria.secrets"])
}

func TestCategoryStates_UnknownNamespaceUsesPrefix(t *testing.T) {
	cs := NewCategoryStates(nil, &memCategories{states: map[string]bool{"cantha": true}})
	require.NoError(t, cs.Reload(context.Background()))

	assert.True(t, cs.IsNamespaceInactive("cantha.jade"))
	assert.False(t, cs.IsNamespaceInactive("elona"))
}

func TestCategoryStates_ReloadPicksUpNewTree(t *testing.T) {
	var tree *pack.Category
	cs := NewCategoryStates(func() *pack.Category { return tree }, nil)
	require.NoError(t, cs.Start(context.Background()))
	require.NoError(t, cs.SetInactive(context.Background(), "tyria", true))

	tree = testTree()
	require.NoError(t, cs.Reload(context.Background()))
	// Without persistence the toggles do not survive a reload.
	assert.False(t, cs.IsNamespaceInactive("tyria.waypoints"))
	assert.True(t, cs.IsNamespaceInactive("tyria.secrets"))
}

func TestCategoryStates_Errors(t *testing.T) {
	boom := errors.New("locked")
	cs := NewCategoryStates(nil, &memCategories{err: boom})
	assert.ErrorIs(t, cs.Reload(context.Background()), boom)
	assert.ErrorIs(t, cs.SetInactive(context.Background(), "x", true), boom)
}

func TestUserResources_WritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "user")
	ur := NewUserResources(dir)
	require.NoError(t, ur.Start(context.Background()))

	assert.FileExists(t, filepath.Join(dir, StaticValuesFile))
	assert.Equal(t, DefaultStaticValues(), ur.Static())
}

func TestUserResources_Reload(t *testing.T) {
	dir := t.TempDir()
	ur := NewUserResources(dir)
	require.NoError(t, ur.Start(context.Background()))

	path := filepath.Join(dir, StaticValuesFile)
	require.NoError(t, os.WriteFile(path, []byte("map_trail_douglas_peucker_error: 0.5\n"), 0644))
	require.NoError(t, ur.Reload(context.Background()))
	assert.InDelta(t, 0.5, ur.Static().MapTrailDouglasPeuckerError, 1e-6)

	require.NoError(t, os.WriteFile(path, []byte("map_trail_douglas_peucker_error: [oops"), 0644))
	assert.Error(t, ur.Reload(context.Background()))

	require.NoError(t, os.Remove(path))
	require.NoError(t, ur.Reload(context.Background()))
	assert.Equal(t, DefaultStaticValues(), ur.Static())
}
