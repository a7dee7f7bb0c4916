package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"pathing/internal/logging"
	"pathing/internal/pack"
)

// DefaultToggleAttribute marks categories hidden until the user enables them.
const DefaultToggleAttribute = "defaulttoggle"

// CategoryPersistence stores the user's category toggles.
type CategoryPersistence interface {
	LoadCategoryStates(ctx context.Context) (map[string]bool, error)
	SaveCategoryState(ctx context.Context, namespace string, inactive bool) error
}

// CategoryStates answers whether a category namespace is inactive. A
// namespace is inactive when it or any ancestor is switched off.
type CategoryStates struct {
	root    func() *pack.Category
	persist CategoryPersistence

	mu       sync.Mutex // serializes writers
	toggles  map[string]bool
	resolved atomic.Pointer[map[string]bool]
}

// NewCategoryStates builds the substate. root returns the active category
// tree; persist may be nil.
func NewCategoryStates(root func() *pack.Category, persist CategoryPersistence) *CategoryStates {
	cs := &CategoryStates{root: root, persist: persist, toggles: make(map[string]bool)}
	empty := map[string]bool{}
	cs.resolved.Store(&empty)
	return cs
}

func (cs *CategoryStates) Name() string { return "categories" }

func (cs *CategoryStates) Start(ctx context.Context) error {
	return cs.Reload(ctx)
}

// Reload rereads the toggles and resolves them against the current tree.
func (cs *CategoryStates) Reload(ctx context.Context) error {
	toggles := make(map[string]bool)
	if cs.persist != nil {
		stored, err := cs.persist.LoadCategoryStates(ctx)
		if err != nil {
			return fmt.Errorf("load category states: %w", err)
		}
		toggles = stored
	}

	cs.mu.Lock()
	cs.toggles = toggles
	cs.resolve()
	cs.mu.Unlock()

	logging.State("category states loaded (%d toggles)", len(toggles))
	return nil
}

// SetInactive switches a namespace on or off and persists the choice.
func (cs *CategoryStates) SetInactive(ctx context.Context, namespace string, inactive bool) error {
	namespace = strings.ToLower(namespace)
	if cs.persist != nil {
		if err := cs.persist.SaveCategoryState(ctx, namespace, inactive); err != nil {
			return err
		}
	}

	cs.mu.Lock()
	next := make(map[string]bool, len(cs.toggles)+1)
	for k, v := range cs.toggles {
		next[k] = v
	}
	next[namespace] = inactive
	cs.toggles = next
	cs.resolve()
	cs.mu.Unlock()
	return nil
}

// IsNamespaceInactive is read every tick; it does not lock.
func (cs *CategoryStates) IsNamespaceInactive(namespace string) bool {
	resolved := *cs.resolved.Load()
	if inactive, ok := resolved[namespace]; ok {
		return inactive
	}
	// Namespace outside the resolved tree: walk explicit toggles by prefix.
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.inactiveByPrefix(namespace, nil)
}

// resolve precomputes every namespace of the current tree. Callers hold mu.
func (cs *CategoryStates) resolve() {
	resolved := make(map[string]bool)
	var root *pack.Category
	if cs.root != nil {
		root = cs.root()
	}
	if root != nil {
		root.Walk(func(c *pack.Category) {
			ns := c.Namespace()
			resolved[ns] = cs.inactiveByPrefix(ns, c)
		})
	}
	cs.resolved.Store(&resolved)
}

func (cs *CategoryStates) inactiveByPrefix(namespace string, c *pack.Category) bool {
	if namespace == "" {
		return false
	}
	parts := strings.Split(namespace, ".")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], ".")
		if inactive, ok := cs.toggles[prefix]; ok {
			if inactive {
				return true
			}
			continue
		}
		if c != nil && defaultOff(ancestorAt(c, len(parts)-1-i)) {
			return true
		}
	}
	return false
}

func ancestorAt(c *pack.Category, up int) *pack.Category {
	for ; up > 0 && c != nil; up-- {
		c = c.Parent
	}
	return c
}

func defaultOff(c *pack.Category) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Attributes.Get(DefaultToggleAttribute)
	if !ok {
		return false
	}
	on, err := strconv.ParseBool(raw)
	return err == nil && !on
}
