package utils

import (
	"sort"
	"sync"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

// MarketScheduler keeps one calendar per tracked symbol.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars replaces the tracked symbols. Symbols on the same
// exchange share one calendar.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	byMIC := make(map[string]*TradingCalendar)
	ms.Calendars = make(map[string]*TradingCalendar, len(symbols))
	for _, symbol := range symbols {
		mic := MICForSymbol(symbol)
		cal, ok := byMIC[mic]
		if !ok {
			cal = GetCalendar(symbol)
			byMIC[mic] = cal
			if cal.Fallback {
				ms.Logger.Warning("No exchange calendar for %s, using weekday session in %s", mic, cal.Timezone)
			}
		}
		ms.Calendars[symbol] = cal
	}

	ms.Logger.Info("MarketScheduler: Mapped %d symbols to %d unique calendars.", len(symbols), len(byMIC))
}

// UpdateSymbols updates the scheduler with a new list of symbols
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	ms.MapSymbolsToCalendars(symbols)
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	for _, st := range ms.Status() {
		if st.Open {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Status reports the open flag of every tracked symbol, sorted by symbol.
func (ms *MarketScheduler) Status() []models.MMarketStatus {
	now := ms.now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	cache := make(map[*TradingCalendar]bool)
	out := make([]models.MMarketStatus, 0, len(ms.Calendars))
	for symbol, cal := range ms.Calendars {
		open, ok := cache[cal]
		if !ok {
			open = cal.IsOpenOnMinute(now)
			cache[cal] = open
		}
		out = append(out, models.MMarketStatus{Symbol: symbol, Open: open})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
