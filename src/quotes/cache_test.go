package quotes

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestCache(prov *fakeProvider) *QuoteCache {
	return NewQuoteCache(NewFreshnessPolicy(), NewFetchAdapter(prov, time.Second, quietLogger()))
}

func TestGetOrRefreshServesCacheWithinInterval(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	prov := &fakeProvider{bars: sampleBars(t0)}
	c := newTestCache(prov)

	first := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0)
	prov.setBars(nil) // a second fetch would now produce a different payload
	second := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0.Add(time.Hour))

	if got := prov.count.Load(); got != 1 {
		t.Fatalf("provider called %d times, want 1", got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached payload differs:\n%+v\n%+v", first, second)
	}
}

func TestGetOrRefreshRefetchesWhenDue(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	prov := &fakeProvider{bars: sampleBars(t0)}
	c := newTestCache(prov)

	c.GetOrRefresh(context.Background(), "X", Cadence1m, t0)
	c.GetOrRefresh(context.Background(), "X", Cadence1m, t0.Add(61*time.Second))

	if got := prov.count.Load(); got != 2 {
		t.Errorf("provider called %d times, want 2", got)
	}
	e, ok := c.Entry("X", Cadence1m)
	if !ok || !e.FetchedAt.Equal(t0.Add(61*time.Second)) {
		t.Errorf("entry not overwritten with the new fetch time: %+v", e)
	}
}

func TestGetOrRefreshKeepsPreviousPayloadWhenRefreshFails(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	prov := &fakeProvider{bars: sampleBars(t0)}
	c := newTestCache(prov)

	first := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0)
	if first.Price != 105 {
		t.Fatalf("first price = %v, want 105", first.Price)
	}

	prov.setErr(errors.New("rate limited"))
	failed := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0.Add(24*time.Hour))
	if !reflect.DeepEqual(first, failed) {
		t.Errorf("failed refresh replaced the payload:\n%+v\n%+v", first, failed)
	}
	if e, _ := c.Entry("X", Cadence1d); !e.FetchedAt.Equal(t0) {
		t.Errorf("entry restamped by a failed refresh: %v", e.FetchedAt)
	}

	// the failure is not remembered as a fresh fetch
	prov.setErr(nil)
	prov.setBars(sampleBars(t0.Add(time.Hour)))
	again := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0.Add(24*time.Hour+time.Minute))
	if got := prov.count.Load(); got != 3 {
		t.Fatalf("provider called %d times, want 3", got)
	}
	if len(again.Historical) == 0 || again.Historical[0].Time == first.Historical[0].Time {
		t.Errorf("recovered refresh still serves the old payload: %+v", again)
	}
}

func TestGetOrRefreshFailureWithoutEntryServesEmpty(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	c := newTestCache(&fakeProvider{err: errors.New("down")})

	p := c.GetOrRefresh(context.Background(), "X", Cadence1h, t0)
	if p.Symbol != "X" || p.Price != 0 || len(p.Historical) != 0 {
		t.Errorf("unexpected payload %+v", p)
	}
	if c.Len() != 0 {
		t.Errorf("failed fetch was cached, Len() = %d", c.Len())
	}
}

func TestPruneDropsSelectedEntries(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	c := newTestCache(&fakeProvider{})
	c.Store("X", Cadence1m, EmptyPayload("X", Cadence1m, t0), t0)
	c.Store("Y", Cadence1m, EmptyPayload("Y", Cadence1m, t0), t0.Add(time.Hour))

	n := c.Prune(func(key PairKey, at time.Time) bool { return at.Before(t0.Add(time.Minute)) })
	if n != 1 || c.Len() != 1 {
		t.Fatalf("pruned %d, Len() = %d", n, c.Len())
	}
	if _, ok := c.Entry("Y", Cadence1m); !ok {
		t.Error("newer entry was dropped")
	}
}

func TestGetOrRefreshFetchesWhenNoEntryEvenIfStamped(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	prov := &fakeProvider{bars: sampleBars(t0)}
	policy := NewFreshnessPolicy()
	c := NewQuoteCache(policy, NewFetchAdapter(prov, time.Second, quietLogger()))

	// a due check elsewhere stamped the pair without storing anything
	policy.IsDue(PairKey{"X", Cadence1d}, t0)

	p := c.GetOrRefresh(context.Background(), "X", Cadence1d, t0)
	if prov.count.Load() != 1 || p.Price != 105 {
		t.Errorf("expected a fetch on a missing entry, calls=%d payload=%+v", prov.count.Load(), p)
	}
}

func TestLatestPicksNewestNonEmptyPerSymbol(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	c := newTestCache(&fakeProvider{})

	older := BuildPayload("X", Cadence1d, sampleBars(t0), t0)
	newer := BuildPayload("X", Cadence1m, sampleBars(t0)[:1], t0)
	c.Store("X", Cadence1d, older, t0)
	c.Store("X", Cadence1m, newer, t0.Add(time.Minute))
	c.Store("Y", Cadence1m, EmptyPayload("Y", Cadence1m, t0), t0.Add(time.Hour))

	latest := c.Latest()
	if len(latest) != 1 {
		t.Fatalf("latest = %v, want only X", latest)
	}
	if latest["X"].Payload.Duration != "1m" || latest["X"].Payload.Price != 100 {
		t.Errorf("latest X = %+v", latest["X"].Payload)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d", c.Len())
	}
}
