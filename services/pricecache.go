package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"paper-trader/models"
	"paper-trader/observability"
)

// PriceCache caches quotes from a MarketDataInterface for a fixed TTL.
// Concurrent misses for the same symbol are coalesced into a single upstream
// call, and when the upstream fails a stale quote is served rather than
// nothing.
type PriceCache struct {
	source MarketDataInterface
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]*models.Quote

	group singleflight.Group
}

// NewPriceCache creates a cache in front of source. A non-positive ttl
// defaults to 60 seconds.
func NewPriceCache(source MarketDataInterface, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &PriceCache{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]*models.Quote),
	}
}

// GetPrice returns a quote for symbol, fetching from the upstream source when
// the cached one is missing or older than the TTL.
func (c *PriceCache) GetPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	if q := c.fresh(symbol); q != nil {
		observability.GetMetrics().RecordPriceFetch("hit")
		return q, nil
	}

	v, err, _ := c.group.Do(symbol, func() (any, error) {
		// A concurrent caller may have refreshed the entry while this one
		// waited on the flight group.
		if q := c.fresh(symbol); q != nil {
			return q, nil
		}

		price, err := c.source.GetLastPrice(ctx, symbol)
		if err != nil {
			if stale := c.any(symbol); stale != nil {
				observability.GetMetrics().RecordPriceFetch("stale")
				observability.WithSymbol(symbol).Warn("serving stale quote",
					"age", stale.Age().String(), "error", err)
				return stale, nil
			}
			observability.GetMetrics().RecordPriceFetch("failure")
			return nil, fmt.Errorf("fetch price for %s: %w", symbol, err)
		}

		q := &models.Quote{Symbol: symbol, Price: price, ObservedAt: time.Now()}
		c.store(q)
		observability.GetMetrics().RecordPriceFetch("miss")
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Quote), nil
}

// fresh returns the cached quote if it is within the TTL.
func (c *PriceCache) fresh(symbol string) *models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[symbol]
	if !ok || !q.FresherThan(c.ttl) {
		return nil
	}
	return q
}

// any returns the cached quote regardless of age.
func (c *PriceCache) any(symbol string) *models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[symbol]
}

func (c *PriceCache) store(q *models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q.Symbol] = q
	observability.GetMetrics().SetPriceCacheSize(len(c.entries))
}

// ClearExpired evicts quotes too old to serve even as stale fallbacks. The
// retention window is ten TTLs, so a briefly flapping upstream still finds a
// recent quote to fall back on.
func (c *PriceCache) ClearExpired() {
	cutoff := time.Now().Add(-10 * c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for symbol, q := range c.entries {
		if q.ObservedAt.Before(cutoff) {
			delete(c.entries, symbol)
		}
	}
	observability.GetMetrics().SetPriceCacheSize(len(c.entries))
}

// Size returns the number of cached symbols.
func (c *PriceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
