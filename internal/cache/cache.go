// Package cache memoizes OCR results keyed by a perceptual fingerprint of the
// captured region, so an unchanged screen is never recognized twice.
package cache

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// DefaultCeiling is the entry count past which the cache is emptied.
const DefaultCeiling = 50

// Fingerprint is a 64-bit average hash of an 8x8 grayscale reduction.
// Visually identical captures share a fingerprint; small pixel noise usually does too.
type Fingerprint uint64

// Compute fingerprints img.
func Compute(img image.Image) (Fingerprint, error) {
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return 0, err
	}
	return Fingerprint(h.GetHash()), nil
}

// Cache maps fingerprints to recognized text. Eviction is all-or-nothing:
// once the entry count exceeds the ceiling the next new insert starts from empty.
type Cache struct {
	mu      sync.Mutex
	ceiling int
	entries map[Fingerprint]string
	hits    uint64
	misses  uint64
	resets  uint64
}

// New creates a cache; a non-positive ceiling selects DefaultCeiling.
func New(ceiling int) *Cache {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Cache{ceiling: ceiling, entries: make(map[Fingerprint]string)}
}

// Lookup returns the text stored for fp.
func (c *Cache) Lookup(fp Fingerprint) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.entries[fp]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return text, ok
}

// Store records text for fp. Overwriting an existing key never triggers a reset.
func (c *Cache) Store(fp Fingerprint, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[fp]; !exists && len(c.entries) > c.ceiling {
		clear(c.entries)
		c.resets++
	}
	c.entries[fp] = text
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	Resets  uint64
}

// Stats returns counters since creation.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses, Resets: c.resets}
}
