package pack

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// packFile is the on-disk YAML layout of a pack manifest.
type packFile struct {
	Categories       []categoryFile `yaml:"categories"`
	PointsOfInterest []poiFile      `yaml:"points_of_interest"`
}

type categoryFile struct {
	Name        string            `yaml:"name"`
	DisplayName string            `yaml:"display_name"`
	Attributes  map[string]string `yaml:"attributes"`
	Children    []categoryFile    `yaml:"children"`
}

type poiFile struct {
	Type       string            `yaml:"type"`
	GUID       string            `yaml:"guid"`
	MapID      int               `yaml:"map_id"`
	Category   string            `yaml:"category"`
	Attributes map[string]string `yaml:"attributes"`
}

// ReadFile reads a YAML pack manifest. Resources resolve relative to the
// manifest's directory.
func ReadFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack: %w", err)
	}
	return Parse(data, NewDirSource(filepath.Dir(path)))
}

// Parse decodes a YAML pack manifest whose resources come from src.
func Parse(data []byte, src Source) (*Collection, error) {
	var pf packFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pack: %w", err)
	}

	root := &Category{Attributes: Attributes{}}
	for _, cf := range pf.Categories {
		addCategory(root, cf)
	}

	pois := make([]*PointOfInterest, 0, len(pf.PointsOfInterest))
	for i, entry := range pf.PointsOfInterest {
		guid, err := ParseGUID(entry.GUID)
		if err != nil {
			return nil, fmt.Errorf("point of interest %d: %w", i, err)
		}

		category := root
		if entry.Category != "" {
			if found, ok := root.Find(entry.Category); ok {
				category = found
			}
		}

		pois = append(pois, &PointOfInterest{
			Type:       ParseType(entry.Type),
			GUID:       guid,
			MapID:      entry.MapID,
			Category:   category,
			Attributes: Attributes(entry.Attributes),
			Source:     src,
		})
	}

	return &Collection{Categories: root, PointsOfInterest: pois}, nil
}

func addCategory(parent *Category, cf categoryFile) {
	c := parent.AddChild(&Category{
		Name:        cf.Name,
		DisplayName: cf.DisplayName,
		Attributes:  Attributes(cf.Attributes),
	})
	for _, child := range cf.Children {
		addCategory(c, child)
	}
}

// ParseGUID accepts the canonical UUID form or the base64 encoding of the
// 16 raw bytes used by marker packs.
func ParseGUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing guid")
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(b) != 16 {
		return uuid.Nil, fmt.Errorf("invalid guid %q", raw)
	}
	return uuid.FromBytes(b)
}
