package server

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

// indicesCache serves market index values, refetching at most once per ttl.
type indicesCache struct {
	provider interfaces.IMarketDataProvider
	symbols  map[string]string
	ttl      time.Duration
	logger   *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	cached    map[string]models.MMarketIndex
	fetchedAt time.Time
}

func newIndicesCache(provider interfaces.IMarketDataProvider, cfg models.MIndicesConfig, log *logger.Logger) *indicesCache {
	ttl := time.Duration(cfg.CacheMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &indicesCache{
		provider: provider,
		symbols:  cfg.Symbols,
		ttl:      ttl,
		logger:   log,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

// Get returns key -> {value, change%}. A failed refresh is not cached.
func (ic *indicesCache) Get(ctx context.Context) (map[string]models.MMarketIndex, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	now := ic.now()
	if ic.cached != nil && now.Sub(ic.fetchedAt) < ic.ttl {
		return ic.cached, nil
	}
	if ic.provider == nil {
		return nil, fmt.Errorf("no market data provider configured")
	}

	keys := make([]string, 0, len(ic.symbols))
	for k := range ic.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]models.MMarketIndex, len(keys))
	for _, key := range keys {
		idx, err := ic.fetch(ctx, ic.symbols[key])
		if err != nil {
			return nil, helpers.NewProviderError(ic.symbols[key], err)
		}
		out[key] = idx
	}

	ic.cached = out
	ic.fetchedAt = now
	ic.logger.Debug("Refreshed %d market indices", len(out))
	return out, nil
}

// -----------------------------------------------------------------------------

// fetch takes the session's first open and last close.
func (ic *indicesCache) fetch(ctx context.Context, symbol string) (models.MMarketIndex, error) {
	bars, err := ic.provider.History(ctx, symbol, "1d", "5m")
	if err != nil {
		return models.MMarketIndex{}, err
	}

	open, last := math.NaN(), math.NaN()
	for _, b := range bars {
		if math.IsNaN(open) && !math.IsNaN(b.Open) && !math.IsInf(b.Open, 0) {
			open = b.Open
		}
		if !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0) {
			last = b.Close
		}
	}
	if math.IsNaN(last) {
		return models.MMarketIndex{}, fmt.Errorf("no data for %s", symbol)
	}
	if math.IsNaN(open) {
		open = last
	}

	return models.MMarketIndex{
		Value:  helpers.RoundPrice(last),
		Change: helpers.PercentChange(open, last),
	}, nil
}
