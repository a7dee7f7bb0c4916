// Package resource caches the visual resources (textures) referenced by
// pack entities. Preloads of the same resource are collapsed so a batch of
// markers sharing one icon reads it once.
package resource

import (
	"context"
	"fmt"
	"sync"

	"pathing/internal/logging"
	"pathing/internal/pack"

	"golang.org/x/sync/singleflight"
)

// Texture is a loaded resource.
type Texture struct {
	Ref  string
	Data []byte
}

// Cache holds loaded textures keyed by source and reference.
type Cache struct {
	mu       sync.RWMutex
	textures map[string]*Texture
	group    singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{textures: make(map[string]*Texture)}
}

func cacheKey(src pack.Source, ref string) string {
	return src.ID() + "|" + ref
}

// Preload loads ref from src unless it is already cached.
func (c *Cache) Preload(ctx context.Context, src pack.Source, ref string) error {
	if src == nil {
		return fmt.Errorf("no resource source for %q", ref)
	}
	key := cacheKey(src, ref)

	c.mu.RLock()
	_, ok := c.textures[key]
	c.mu.RUnlock()
	if ok {
		return nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		c.mu.RLock()
		tex, ok := c.textures[key]
		c.mu.RUnlock()
		if ok {
			return tex, nil
		}
		data, err := src.Open(ref)
		if err != nil {
			return nil, err
		}
		tex = &Texture{Ref: ref, Data: data}
		c.mu.Lock()
		c.textures[key] = tex
		c.mu.Unlock()
		return tex, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Get returns the cached texture for ref.
func (c *Cache) Get(src pack.Source, ref string) (*Texture, bool) {
	if src == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	tex, ok := c.textures[cacheKey(src, ref)]
	return tex, ok
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.textures)
}

// Unload releases every cached texture.
func (c *Cache) Unload() {
	c.mu.Lock()
	n := len(c.textures)
	c.textures = make(map[string]*Texture)
	c.mu.Unlock()
	logging.Resource("released %d textures", n)
}
