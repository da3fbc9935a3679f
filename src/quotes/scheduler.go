package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

// ErrSchedulerStopped is returned by calls made after Run has exited.
var ErrSchedulerStopped = errors.New("broadcast scheduler stopped")

// SchedulerOptions configures a BroadcastScheduler.
type SchedulerOptions struct {
	TickInterval time.Duration
	ErrorBackoff time.Duration
	FetchWorkers int
	RetryDelay   time.Duration         // wait after a failed fetch, capped by the cadence interval
	IdleTTL      time.Duration         // how long an unsubscribed pair outlives its refresh interval
	Publisher    interfaces.IPublisher // optional
	Now          func() time.Time      // optional clock
}

const pruneEvery = time.Minute

type fetchResult struct {
	key     PairKey
	payload models.MQuotePayload
	ok      bool
}

// -----------------------------------------------------------------------------

// BroadcastScheduler drives periodic refreshes and fans payloads out to the
// subscribers of each (symbol, cadence) pair.
//
// The registry, cache, freshness policy and in-flight set are touched only by
// the goroutine running Run. Other goroutines talk to it through commands;
// provider calls run on a bounded worker pool and report back on results.
type BroadcastScheduler struct {
	Logger *logger.Logger

	tickInterval time.Duration
	errorBackoff time.Duration
	retryDelay   time.Duration
	idleTTL      time.Duration
	publisher    interfaces.IPublisher
	now          func() time.Time

	registry *SubscriptionRegistry
	policy   *FreshnessPolicy
	cache    *QuoteCache
	fetcher  Fetcher

	inflight    map[PairKey][]chan models.MQuotePayload
	pausedUntil time.Time
	lastPrune   time.Time
	stats       models.MSchedulerStats

	commands chan func(now time.Time)
	results  chan fetchResult
	sem      chan struct{}
	workers  sync.WaitGroup
	runCtx   context.Context
	started  chan struct{}
	done     chan struct{}
}

// -----------------------------------------------------------------------------

func NewBroadcastScheduler(fetcher Fetcher, opts SchedulerOptions, log *logger.Logger) *BroadcastScheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 4
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	policy := NewFreshnessPolicy()
	return &BroadcastScheduler{
		Logger:       log,
		tickInterval: opts.TickInterval,
		errorBackoff: opts.ErrorBackoff,
		retryDelay:   opts.RetryDelay,
		idleTTL:      opts.IdleTTL,
		publisher:    opts.Publisher,
		now:          opts.Now,
		registry:     NewSubscriptionRegistry(),
		policy:       policy,
		cache:        NewQuoteCache(policy, fetcher),
		fetcher:      fetcher,
		inflight:     make(map[PairKey][]chan models.MQuotePayload),
		commands:     make(chan func(time.Time)),
		results:      make(chan fetchResult, opts.FetchWorkers),
		sem:          make(chan struct{}, opts.FetchWorkers),
		started:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

// Run processes ticks, commands and fetch results until ctx is cancelled.
// It waits for in-flight fetches to return before exiting.
func (s *BroadcastScheduler) Run(ctx context.Context) error {
	s.runCtx = ctx
	close(s.started)

	ticker := time.NewTicker(s.tickInterval)
	defer func() {
		ticker.Stop()
		s.workers.Wait()
		close(s.done)
		s.Logger.Info("Broadcast scheduler stopped")
	}()

	s.Logger.Info("Broadcast scheduler started (tick=%v, workers=%d)", s.tickInterval, cap(s.sem))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-s.commands:
			s.guard("command", func() { cmd(s.now()) })

		case res := <-s.results:
			s.guard("delivery", func() { s.deliver(res, s.now()) })

		case <-ticker.C:
			now := s.now()
			if now.Before(s.pausedUntil) {
				continue
			}
			s.guard("tick", func() { s.tick(now) })
		}
	}
}

// -----------------------------------------------------------------------------

// guard runs one unit of loop work. A panic aborts that unit, is logged as a
// SchedulerTickError and pauses ticking for the error backoff.
func (s *BroadcastScheduler) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := helpers.NewSchedulerTickError(helpers.RecoverError(r))
			s.stats.TickErrors++
			s.pausedUntil = s.now().Add(s.errorBackoff)
			s.Logger.Error("Broadcast %s error, pausing %v: %v", what, s.errorBackoff, err)
		}
	}()
	fn()
}

// -----------------------------------------------------------------------------

// tick dispatches one fetch for every due pair that has subscribers.
func (s *BroadcastScheduler) tick(now time.Time) {
	s.stats.Ticks++
	s.stats.LastTickEpoch = now.UnixMilli()

	for _, symbol := range s.registry.Instruments() {
		groups := s.registry.GroupByInstrumentCadence(symbol)

		cadences := make([]Cadence, 0, len(groups))
		for c := range groups {
			cadences = append(cadences, c)
		}
		sort.Slice(cadences, func(i, j int) bool { return cadences[i] < cadences[j] })

		for _, cadence := range cadences {
			key := PairKey{symbol, cadence}
			if _, busy := s.inflight[key]; busy {
				continue
			}
			if !s.policy.IsDue(key, now) {
				continue
			}
			s.dispatch(key, nil)
		}
	}

	if now.Sub(s.lastPrune) >= pruneEvery {
		s.lastPrune = now
		s.prune(now)
	}
}

// -----------------------------------------------------------------------------

// prune forgets pairs nobody subscribes to once they are past their refresh
// interval plus the idle TTL, so symbols requested once do not stay tracked.
func (s *BroadcastScheduler) prune(now time.Time) {
	drop := func(key PairKey, at time.Time) bool {
		if _, busy := s.inflight[key]; busy {
			return false
		}
		if len(s.registry.Group(key)) > 0 {
			return false
		}
		return now.Sub(at) >= key.Cadence.RefreshInterval()+s.idleTTL
	}

	entries := s.cache.Prune(drop)
	stamps := s.policy.Prune(drop)
	if entries > 0 || stamps > 0 {
		s.Logger.Debug("Pruned %d idle cache entries, %d freshness stamps", entries, stamps)
	}
}

// -----------------------------------------------------------------------------

// dispatch starts a fetch for key unless one is already running. A non-nil
// waiter receives the payload when it lands.
func (s *BroadcastScheduler) dispatch(key PairKey, waiter chan models.MQuotePayload) {
	waiters, busy := s.inflight[key]
	if waiter != nil {
		waiters = append(waiters, waiter)
	}
	s.inflight[key] = waiters
	if busy {
		return
	}

	s.stats.Fetches++
	ctx := s.runCtx
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		payload, ok := s.fetcher.Fetch(ctx, key.Symbol, key.Cadence)
		<-s.sem

		select {
		case s.results <- fetchResult{key: key, payload: payload, ok: ok}:
		case <-ctx.Done():
		}
	}()
}

// -----------------------------------------------------------------------------

// deliver stores a finished fetch and pushes it to the pair's current group.
// A failed fetch stores nothing: the group gets the previous entry (or an
// empty payload when there is none) and the pair is retried after retryDelay.
func (s *BroadcastScheduler) deliver(res fetchResult, now time.Time) {
	waiters := s.inflight[res.key]
	delete(s.inflight, res.key)

	payload := res.payload
	if res.ok {
		s.cache.Store(res.key.Symbol, res.key.Cadence, payload, now)
	} else {
		s.stats.FetchFailures++
		s.policy.RetryAfter(res.key, now, s.retryDelay)
		payload = s.cache.Fallback(res.key.Symbol, res.key.Cadence, payload)
	}
	for _, w := range waiters {
		w <- payload
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Error("Error encoding %s: %v", res.key, err)
		return
	}

	s.push(res.key, s.registry.Group(res.key), data)

	if res.ok && s.publisher != nil {
		if err := s.publisher.Publish(s.runCtx, res.key.Symbol+"."+string(res.key.Cadence), data); err != nil {
			s.Logger.Warning("Publish %s via %s failed: %v", res.key, s.publisher.Name(), err)
		}
	}
}

// -----------------------------------------------------------------------------

// push sends data to every connection; one failure, panics included, never
// stops the rest.
func (s *BroadcastScheduler) push(key PairKey, conns []interfaces.ISubscriber, data []byte) {
	for _, conn := range conns {
		if err := pushOne(conn, data); err != nil {
			s.stats.PushFailures++
			s.Logger.Warning("Error broadcasting %s: %v", key, helpers.NewTransportError(conn.ID(), err))
			continue
		}
		s.stats.Pushes++
	}
}

// -----------------------------------------------------------------------------

func pushOne(conn interfaces.ISubscriber, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = helpers.RecoverError(r)
		}
	}()
	return conn.Push(data)
}

// -----------------------------------------------------------------------------

// serve gives one connection the current payload of key: a cache hit is
// pushed directly, a miss joins (or starts) the pair's fetch.
func (s *BroadcastScheduler) serve(key PairKey, conn interfaces.ISubscriber, now time.Time) {
	if payload, hit := s.cache.Lookup(key.Symbol, key.Cadence, now); hit {
		data, err := json.Marshal(payload)
		if err != nil {
			s.Logger.Error("Error encoding %s: %v", key, err)
			return
		}
		s.push(key, []interfaces.ISubscriber{conn}, data)
		return
	}
	s.dispatch(key, nil)
}

// -----------------------------------------------------------------------------
// Public API (safe from any goroutine)
// -----------------------------------------------------------------------------

func (s *BroadcastScheduler) do(ctx context.Context, fn func(now time.Time)) error {
	select {
	case s.commands <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSchedulerStopped
	}
}

// -----------------------------------------------------------------------------

// Subscribe registers conn for (symbol, cadence) and arranges an initial push.
func (s *BroadcastScheduler) Subscribe(ctx context.Context, conn interfaces.ISubscriber, symbol string, cadence Cadence) error {
	return s.do(ctx, func(now time.Time) {
		s.registry.Add(conn, symbol, cadence)
		s.Logger.Info("New connection %s for %s with duration: %s", conn.ID(), symbol, cadence)
		s.serve(PairKey{symbol, cadence}, conn, now)
	})
}

// -----------------------------------------------------------------------------

// Unsubscribe removes the connection. Calling it twice is harmless.
func (s *BroadcastScheduler) Unsubscribe(ctx context.Context, id string) error {
	return s.do(ctx, func(time.Time) {
		if s.registry.Remove(id) {
			s.Logger.Info("Connection %s closed", id)
		}
	})
}

// -----------------------------------------------------------------------------

// SetCadence moves the connection to a new cadence. The next tick groups it
// under the new cadence; it also gets the new cadence's payload right away.
func (s *BroadcastScheduler) SetCadence(ctx context.Context, id string, cadence Cadence) error {
	return s.do(ctx, func(now time.Time) {
		before, ok := s.registry.Get(id)
		if !ok || before.Cadence == cadence {
			return
		}
		s.registry.SetCadence(id, cadence)
		s.Logger.Debug("Connection %s switched %s -> %s", id, before.Cadence, cadence)
		s.serve(PairKey{before.Symbol, cadence}, before.Conn, now)
	})
}

// -----------------------------------------------------------------------------

// Snapshot returns the payload for (symbol, cadence) through the shared cache,
// joining an in-flight fetch for the pair if there is one.
func (s *BroadcastScheduler) Snapshot(ctx context.Context, symbol string, cadence Cadence) (models.MQuotePayload, error) {
	reply := make(chan models.MQuotePayload, 1)
	err := s.do(ctx, func(now time.Time) {
		key := PairKey{symbol, cadence}
		if payload, hit := s.cache.Lookup(symbol, cadence, now); hit {
			reply <- payload
			return
		}
		s.dispatch(key, reply)
	})
	if err != nil {
		return models.MQuotePayload{}, err
	}

	select {
	case p := <-reply:
		return p, nil
	case <-ctx.Done():
		return models.MQuotePayload{}, ctx.Err()
	case <-s.done:
		return models.MQuotePayload{}, ErrSchedulerStopped
	}
}

// -----------------------------------------------------------------------------

// Stats returns counters and sizes of the scheduler state.
func (s *BroadcastScheduler) Stats(ctx context.Context) (models.MSchedulerStats, error) {
	reply := make(chan models.MSchedulerStats, 1)
	err := s.do(ctx, func(time.Time) {
		st := s.stats
		st.Connections = s.registry.Count()
		st.Instruments = len(s.registry.Instruments())
		st.CacheEntries = s.cache.Len()
		st.InFlight = len(s.inflight)
		reply <- st
	})
	if err != nil {
		return models.MSchedulerStats{}, err
	}
	return <-reply, nil
}

// -----------------------------------------------------------------------------

// LatestPrices returns the newest cached price of every symbol.
func (s *BroadcastScheduler) LatestPrices(ctx context.Context) ([]models.MPriceSnapshot, error) {
	reply := make(chan []models.MPriceSnapshot, 1)
	err := s.do(ctx, func(time.Time) {
		latest := s.cache.Latest()
		out := make([]models.MPriceSnapshot, 0, len(latest))
		for symbol, e := range latest {
			out = append(out, models.MPriceSnapshot{
				Symbol:     symbol,
				Price:      e.Payload.Price,
				Change:     e.Payload.Change,
				LastUpdate: e.FetchedAt,
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
		reply <- out
	})
	if err != nil {
		return nil, err
	}
	return <-reply, nil
}

// -----------------------------------------------------------------------------

// Started is closed once Run has begun processing.
func (s *BroadcastScheduler) Started() <-chan struct{} {
	return s.started
}

// Done is closed after Run returns.
func (s *BroadcastScheduler) Done() <-chan struct{} {
	return s.done
}
