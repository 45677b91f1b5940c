package storage

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
)

// Cached fronts a Repository with an in-memory LRU of recently read
// products. Save invalidates the entry it replaces.
//
// The cache only sees writes made through it, so it must not be enabled
// when another process (a CLI extract next to a running server) writes to
// the same store.
type Cached struct {
	next     Repository
	opinions *lru.Cache[string, []scraper.Record]
	stats    *lru.Cache[string, *stats.ProductStats]

	// generations is bumped by every Save; a read only fills the cache when
	// no Save for its key completed while it was loading.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewCached(next Repository, size int) (*Cached, error) {
	opinions, err := lru.New[string, []scraper.Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create opinions cache: %w", err)
	}
	st, err := lru.New[string, *stats.ProductStats](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats cache: %w", err)
	}
	return &Cached{
		next:        next,
		opinions:    opinions,
		stats:       st,
		generations: map[string]uint64{},
	}, nil
}

func (c *Cached) Save(ctx context.Context, productID string, records []scraper.Record, st *stats.ProductStats) error {
	err := c.next.Save(ctx, productID, records, st)

	c.mu.Lock()
	c.generations[productID]++
	c.opinions.Remove(productID)
	c.stats.Remove(productID)
	c.mu.Unlock()
	return err
}

func (c *Cached) generation(productID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[productID]
}

// fill runs add unless a Save for productID landed after gen was taken.
func (c *Cached) fill(productID string, gen uint64, add func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[productID] == gen {
		add()
	}
}

func (c *Cached) Opinions(ctx context.Context, productID string) ([]scraper.Record, error) {
	if records, ok := c.opinions.Get(productID); ok {
		return records, nil
	}
	gen := c.generation(productID)
	records, err := c.next.Opinions(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.fill(productID, gen, func() { c.opinions.Add(productID, records) })
	return records, nil
}

func (c *Cached) Stats(ctx context.Context, productID string) (*stats.ProductStats, error) {
	if st, ok := c.stats.Get(productID); ok {
		return st, nil
	}
	gen := c.generation(productID)
	st, err := c.next.Stats(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.fill(productID, gen, func() { c.stats.Add(productID, st) })
	return st, nil
}

// ListStats always goes to the backing store; new products must show up.
func (c *Cached) ListStats(ctx context.Context) ([]*stats.ProductStats, error) {
	return c.next.ListStats(ctx)
}

func (c *Cached) Close() error {
	c.opinions.Purge()
	c.stats.Purge()
	return c.next.Close()
}
