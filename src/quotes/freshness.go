package quotes

import "time"

// PairKey identifies one (instrument, cadence) pair.
type PairKey struct {
	Symbol  string
	Cadence Cadence
}

func (k PairKey) String() string {
	return k.Symbol + "_" + string(k.Cadence)
}

// -----------------------------------------------------------------------------

// FreshnessPolicy decides whether a pair is due for a fetch. Not safe for
// concurrent use; the broadcast scheduler goroutine owns it.
type FreshnessPolicy struct {
	lastFetch map[PairKey]time.Time
}

func NewFreshnessPolicy() *FreshnessPolicy {
	return &FreshnessPolicy{lastFetch: make(map[PairKey]time.Time)}
}

// -----------------------------------------------------------------------------

// RefreshInterval returns the fixed minimum refresh interval for c.
func (p *FreshnessPolicy) RefreshInterval(c Cadence) time.Duration {
	return c.RefreshInterval()
}

// -----------------------------------------------------------------------------

// IsDue reports whether key should be fetched at now. A true answer stamps
// now as the pair's last fetch, so a second call in the same interval is false.
func (p *FreshnessPolicy) IsDue(key PairKey, now time.Time) bool {
	last, seen := p.lastFetch[key]
	if seen && now.Sub(last) < key.Cadence.RefreshInterval() {
		return false
	}
	p.lastFetch[key] = now
	return true
}

// -----------------------------------------------------------------------------

// Forget drops the record for key; the next IsDue is a first observation.
func (p *FreshnessPolicy) Forget(key PairKey) {
	delete(p.lastFetch, key)
}

// RetryAfter stamps key so it becomes due at now+delay, or after its normal
// interval when that is shorter.
func (p *FreshnessPolicy) RetryAfter(key PairKey, now time.Time, delay time.Duration) {
	interval := key.Cadence.RefreshInterval()
	if delay > interval {
		delay = interval
	}
	p.lastFetch[key] = now.Add(delay - interval)
}

// Prune forgets the pairs drop selects and returns how many went.
func (p *FreshnessPolicy) Prune(drop func(key PairKey, last time.Time) bool) int {
	n := 0
	for key, last := range p.lastFetch {
		if drop(key, last) {
			delete(p.lastFetch, key)
			n++
		}
	}
	return n
}

// Len is the number of tracked pairs.
func (p *FreshnessPolicy) Len() int {
	return len(p.lastFetch)
}
