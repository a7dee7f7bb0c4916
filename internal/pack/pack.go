// Package pack models marker pack data as handed to the orchestrator: the
// category tree and the points of interest that become live entities.
package pack

import (
	"strings"

	"github.com/google/uuid"
)

// Type tags a point of interest.
type Type int

const (
	TypeUnknown Type = iota
	TypeMarker
	TypeTrail
	TypeRoute
)

func (t Type) String() string {
	switch t {
	case TypeMarker:
		return "marker"
	case TypeTrail:
		return "trail"
	case TypeRoute:
		return "route"
	}
	return "unknown"
}

// ParseType maps a type tag onto a Type. Unrecognized tags yield TypeUnknown.
func ParseType(raw string) Type {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "marker", "poi":
		return TypeMarker
	case "trail":
		return TypeTrail
	case "route":
		return TypeRoute
	}
	return TypeUnknown
}

// Attributes are the raw key/value pairs of a category or point of interest.
// Keys are compared case-insensitively.
type Attributes map[string]string

// Get returns the value of name.
func (a Attributes) Get(name string) (string, bool) {
	if v, ok := a[name]; ok {
		return v, true
	}
	for k, v := range a {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Category is one node of the category tree.
type Category struct {
	Name        string
	DisplayName string
	Attributes  Attributes
	Parent      *Category
	Children    []*Category
}

// Namespace is the dotted path from the root, excluding the unnamed root.
func (c *Category) Namespace() string {
	if c == nil {
		return ""
	}
	var parts []string
	for n := c; n != nil; n = n.Parent {
		if n.Name != "" {
			parts = append(parts, n.Name)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// AddChild attaches child under c.
func (c *Category) AddChild(child *Category) *Category {
	child.Parent = c
	c.Children = append(c.Children, child)
	return child
}

// Find returns the descendant with the given namespace.
func (c *Category) Find(namespace string) (*Category, bool) {
	namespace = strings.ToLower(namespace)
	if c.Namespace() == namespace {
		return c, true
	}
	for _, child := range c.Children {
		if found, ok := child.Find(namespace); ok {
			return found, true
		}
	}
	return nil, false
}

// Walk visits c and every descendant depth-first.
func (c *Category) Walk(fn func(*Category)) {
	fn(c)
	for _, child := range c.Children {
		child.Walk(fn)
	}
}

// PointOfInterest describes one marker, trail or route before construction.
type PointOfInterest struct {
	Type       Type
	GUID       uuid.UUID
	MapID      int
	Category   *Category
	Attributes Attributes
	Source     Source
}

// AggregatedAttribute returns name from the point of interest itself or,
// failing that, from the closest category that defines it.
func (p *PointOfInterest) AggregatedAttribute(name string) (string, bool) {
	if v, ok := p.Attributes.Get(name); ok {
		return v, true
	}
	for c := p.Category; c != nil; c = c.Parent {
		if v, ok := c.Attributes.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// Collection is a fully read pack: its category tree and points of interest.
type Collection struct {
	Categories       *Category
	PointsOfInterest []*PointOfInterest
}
