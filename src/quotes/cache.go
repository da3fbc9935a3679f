package quotes

import (
	"context"
	"time"

	"quote-broadcaster/src/models"
)

// CacheEntry is the last computed payload of a pair and when it was fetched.
type CacheEntry struct {
	Payload   models.MQuotePayload
	FetchedAt time.Time
}

// Fetcher is the part of FetchAdapter the cache depends on. ok reports a
// successful refresh; only those are stored.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, cadence Cadence) (payload models.MQuotePayload, ok bool)
}

// -----------------------------------------------------------------------------

// QuoteCache maps (symbol, cadence) to its latest payload. Like the freshness
// policy it is owned by a single goroutine and holds no lock.
type QuoteCache struct {
	policy  *FreshnessPolicy
	fetcher Fetcher
	entries map[PairKey]*CacheEntry
}

func NewQuoteCache(policy *FreshnessPolicy, fetcher Fetcher) *QuoteCache {
	return &QuoteCache{
		policy:  policy,
		fetcher: fetcher,
		entries: make(map[PairKey]*CacheEntry),
	}
}

// -----------------------------------------------------------------------------

// Lookup returns the cached payload when the pair is not due and an entry
// exists. A due answer stamps the pair (see FreshnessPolicy.IsDue).
func (c *QuoteCache) Lookup(symbol string, cadence Cadence, now time.Time) (models.MQuotePayload, bool) {
	key := PairKey{symbol, cadence}
	due := c.policy.IsDue(key, now)
	entry, ok := c.entries[key]
	if !due && ok {
		return entry.Payload, true
	}
	return models.MQuotePayload{}, false
}

// -----------------------------------------------------------------------------

// Store replaces the entry of the pair as a whole.
func (c *QuoteCache) Store(symbol string, cadence Cadence, payload models.MQuotePayload, now time.Time) {
	c.entries[PairKey{symbol, cadence}] = &CacheEntry{Payload: payload, FetchedAt: now}
}

// -----------------------------------------------------------------------------

// Entry returns the stored entry regardless of freshness.
func (c *QuoteCache) Entry(symbol string, cadence Cadence) (CacheEntry, bool) {
	e, ok := c.entries[PairKey{symbol, cadence}]
	if !ok {
		return CacheEntry{}, false
	}
	return *e, true
}

// -----------------------------------------------------------------------------

// GetOrRefresh serves a hit from memory, otherwise fetches synchronously and
// stores the result under now. A failed refresh stores nothing and clears the
// pair's stamp so the next call fetches again; it returns the previous entry
// when there is one.
func (c *QuoteCache) GetOrRefresh(ctx context.Context, symbol string, cadence Cadence, now time.Time) models.MQuotePayload {
	if payload, hit := c.Lookup(symbol, cadence, now); hit {
		return payload
	}
	payload, ok := c.fetcher.Fetch(ctx, symbol, cadence)
	if !ok {
		c.policy.Forget(PairKey{symbol, cadence})
		return c.Fallback(symbol, cadence, payload)
	}
	c.Store(symbol, cadence, payload, now)
	return payload
}

// Fallback is the payload served after a failed refresh: the previous entry
// if any, otherwise empty.
func (c *QuoteCache) Fallback(symbol string, cadence Cadence, empty models.MQuotePayload) models.MQuotePayload {
	if e, ok := c.entries[PairKey{symbol, cadence}]; ok {
		return e.Payload
	}
	return empty
}

// -----------------------------------------------------------------------------

// Prune removes the entries drop selects and returns how many went.
func (c *QuoteCache) Prune(drop func(key PairKey, fetchedAt time.Time) bool) int {
	n := 0
	for key, e := range c.entries {
		if drop(key, e.FetchedAt) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// Latest returns, per symbol, the most recently fetched non-empty payload
// across all cadences.
func (c *QuoteCache) Latest() map[string]CacheEntry {
	out := make(map[string]CacheEntry)
	for key, e := range c.entries {
		if len(e.Payload.Historical) == 0 {
			continue
		}
		if cur, ok := out[key.Symbol]; !ok || e.FetchedAt.After(cur.FetchedAt) {
			out[key.Symbol] = *e
		}
	}
	return out
}

// Len is the number of cached pairs.
func (c *QuoteCache) Len() int {
	return len(c.entries)
}
