package quotes

import "time"

// Cadence is the client requested timeframe ("duration" on the wire).
type Cadence string

const (
	Cadence1m  Cadence = "1m"
	Cadence5m  Cadence = "5m"
	Cadence15m Cadence = "15m"
	Cadence30m Cadence = "30m"
	Cadence1h  Cadence = "1h"
	Cadence4h  Cadence = "4h"
	Cadence1d  Cadence = "1d"
	Cadence1w  Cadence = "1w"
	Cadence1mo Cadence = "1mo"

	// FallbackCadence stands in for any value outside the table.
	FallbackCadence = Cadence5m
)

// FetchParams is the (lookback period, sampling interval) pair sent to the provider.
type FetchParams struct {
	Period   string
	Interval string
}

var fetchTable = map[Cadence]FetchParams{
	Cadence1m:  {"1d", "1m"},
	Cadence5m:  {"1d", "5m"},
	Cadence15m: {"1d", "15m"},
	Cadence30m: {"5d", "30m"},
	Cadence1h:  {"1mo", "1h"},
	Cadence4h:  {"3mo", "1h"},
	Cadence1d:  {"1mo", "1d"},
	Cadence1w:  {"6mo", "1wk"},
	Cadence1mo: {"2y", "1mo"},
}

var refreshTable = map[Cadence]time.Duration{
	Cadence1m:  60 * time.Second,
	Cadence5m:  300 * time.Second,
	Cadence15m: 900 * time.Second,
	Cadence30m: 1800 * time.Second,
	Cadence1h:  3600 * time.Second,
	Cadence4h:  14400 * time.Second,
	Cadence1d:  86400 * time.Second,
	Cadence1w:  604800 * time.Second,
	Cadence1mo: 2592000 * time.Second,
}

// Cadences lists the supported cadences, shortest first.
func Cadences() []Cadence {
	return []Cadence{Cadence1m, Cadence5m, Cadence15m, Cadence30m, Cadence1h, Cadence4h, Cadence1d, Cadence1w, Cadence1mo}
}

// Valid reports whether c is one of the enumerated cadences.
func (c Cadence) Valid() bool {
	_, ok := refreshTable[c]
	return ok
}

// FetchParams returns the provider window for c.
func (c Cadence) FetchParams() FetchParams {
	if p, ok := fetchTable[c]; ok {
		return p
	}
	return fetchTable[FallbackCadence]
}

// RefreshInterval is the minimum time between two fetches for c.
func (c Cadence) RefreshInterval() time.Duration {
	if d, ok := refreshTable[c]; ok {
		return d
	}
	return refreshTable[FallbackCadence]
}

// NormalizeCadence maps client input onto the enumerated set: empty input
// takes def, unknown input takes FallbackCadence.
func NormalizeCadence(s string, def Cadence) Cadence {
	if s == "" {
		if def.Valid() {
			return def
		}
		return FallbackCadence
	}
	c := Cadence(s)
	if c.Valid() {
		return c
	}
	return FallbackCadence
}
