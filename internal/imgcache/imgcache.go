// Package imgcache memoizes rendered images for the active test item.
//
// The cache holds at most one test's worth of images, keyed by backend. Switching to
// a different test flushes everything; there is no partial invalidation. A Cache is
// not safe for concurrent use: the render orchestrator's event loop is its only owner.
package imgcache

import (
	"context"
	"image"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// RenderFunc produces the image for a cache miss.
type RenderFunc func(ctx context.Context) (image.Image, error)

// Cache maps backend to its last rendered image for the current key.
type Cache struct {
	key    string
	images map[model.Backend]image.Image
	hits   int
	misses int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{images: make(map[model.Backend]image.Image)}
}

// Key returns the test item the cached images belong to.
func (c *Cache) Key() string {
	return c.key
}

// SetKey selects the active test item. A different key flushes the cache.
// Returns true if the cache was flushed.
func (c *Cache) SetKey(key string) bool {
	if key == c.key {
		return false
	}
	c.key = key
	c.Flush()
	return true
}

// Flush drops every cached image.
func (c *Cache) Flush() {
	clear(c.images)
}

// Get returns the cached image for backend under key, if any.
func (c *Cache) Get(key string, b model.Backend) (image.Image, bool) {
	if key != c.key {
		c.misses++
		return nil, false
	}
	img, ok := c.images[b]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return img, ok
}

// Put stores img for backend under key, flushing first if key differs from the active one.
func (c *Cache) Put(key string, b model.Backend, img image.Image) {
	c.SetKey(key)
	c.images[b] = img
}

// GetOrRender returns the cached image for backend under key, or calls render and
// caches its result. Errors are returned as-is and never cached, so a later call
// retries the backend.
func (c *Cache) GetOrRender(ctx context.Context, key string, b model.Backend, render RenderFunc) (image.Image, error) {
	c.SetKey(key)
	if img, ok := c.images[b]; ok {
		c.hits++
		return img, nil
	}
	c.misses++
	img, err := render(ctx)
	if err != nil {
		return nil, err
	}
	c.images[b] = img
	return img, nil
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	return len(c.images)
}

// Stats returns cumulative hit and miss counts of Get and GetOrRender.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
