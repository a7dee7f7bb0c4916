package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"pathing/internal/logging"

	"gopkg.in/yaml.v3"
)

// StaticValuesFile is the user-editable file of static tuning values.
const StaticValuesFile = "static.yaml"

// StaticValues are values that are normally constant but can be tuned by
// the user.
type StaticValues struct {
	// Error used when simplifying trail segments for the compass map.
	MapTrailDouglasPeuckerError float32 `yaml:"map_trail_douglas_peucker_error"`
}

// DefaultStaticValues returns the shipped values.
func DefaultStaticValues() StaticValues {
	return StaticValues{MapTrailDouglasPeuckerError: 0.2}
}

// UserResources loads user resource files from a directory.
type UserResources struct {
	dir    string
	static atomic.Pointer[StaticValues]
}

// NewUserResources reads from dir.
func NewUserResources(dir string) *UserResources {
	ur := &UserResources{dir: dir}
	def := DefaultStaticValues()
	ur.static.Store(&def)
	return ur
}

func (ur *UserResources) Name() string { return "user_resources" }

// Start writes the default file when none exists, then loads it.
func (ur *UserResources) Start(ctx context.Context) error {
	path := filepath.Join(ur.dir, StaticValuesFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := ur.writeDefaults(path); err != nil {
			logging.Get(logging.CategoryState).Warn("could not write default %s: %v", path, err)
		}
	}
	return ur.Reload(ctx)
}

// Reload rereads static.yaml. A missing file keeps the defaults.
func (ur *UserResources) Reload(ctx context.Context) error {
	path := filepath.Join(ur.dir, StaticValuesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			def := DefaultStaticValues()
			ur.static.Store(&def)
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	values := DefaultStaticValues()
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	ur.static.Store(&values)
	return nil
}

// Static returns the current static values.
func (ur *UserResources) Static() StaticValues {
	return *ur.static.Load()
}

func (ur *UserResources) writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(DefaultStaticValues())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
