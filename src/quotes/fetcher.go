package quotes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

// FetchAdapter wraps the market-data provider and always yields a payload.
type FetchAdapter struct {
	Provider interfaces.IMarketDataProvider
	Timeout  time.Duration
	Logger   *logger.Logger
	now      func() time.Time
}

func NewFetchAdapter(provider interfaces.IMarketDataProvider, timeout time.Duration, log *logger.Logger) *FetchAdapter {
	return &FetchAdapter{
		Provider: provider,
		Timeout:  timeout,
		Logger:   log,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

// Fetch retrieves bars for (symbol, cadence) and builds the payload. It always
// yields a payload; ok is false when the provider failed or returned no usable
// bars, in which case the payload is EmptyPayload and must not be cached.
func (f *FetchAdapter) Fetch(ctx context.Context, symbol string, cadence Cadence) (models.MQuotePayload, bool) {
	bars, err := f.history(ctx, symbol, cadence)
	if err != nil {
		f.Logger.Error("Error getting stock data for %s/%s: %v", symbol, cadence, helpers.NewProviderError(symbol, err))
		return EmptyPayload(symbol, cadence, f.now()), false
	}
	payload := BuildPayload(symbol, cadence, bars, f.now())
	if len(payload.Historical) == 0 {
		f.Logger.Warning("No data found for %s/%s", symbol, cadence)
		return payload, false
	}
	return payload, true
}

// -----------------------------------------------------------------------------

func (f *FetchAdapter) history(ctx context.Context, symbol string, cadence Cadence) (bars []models.MBar, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = helpers.RecoverError(r)
		}
	}()

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	params := cadence.FetchParams()
	bars, err = f.Provider.History(ctx, symbol, params.Period, params.Interval)
	if err != nil {
		return nil, fmt.Errorf("%s history(%s, %s): %w", f.Provider.Name(), params.Period, params.Interval, err)
	}
	return bars, nil
}

// -----------------------------------------------------------------------------

// EmptyPayload is the well-defined result when no usable data exists.
func EmptyPayload(symbol string, cadence Cadence, now time.Time) models.MQuotePayload {
	return models.MQuotePayload{
		Symbol:     symbol,
		Duration:   string(cadence),
		Historical: []models.MHistoricalPoint{},
		LastUpdate: now.UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

// BuildPayload cleans raw bars and derives the summary fields. Bars whose
// close or volume is missing are dropped; missing open/high/low take the close.
func BuildPayload(symbol string, cadence Cadence, bars []models.MBar, now time.Time) models.MQuotePayload {
	historical := make([]models.MHistoricalPoint, 0, len(bars))
	for _, b := range bars {
		if !finite(b.Close) || !finite(b.Volume) {
			continue
		}
		historical = append(historical, models.MHistoricalPoint{
			Time:   b.Time.UnixMilli(),
			Open:   orClose(b.Open, b.Close),
			High:   orClose(b.High, b.Close),
			Low:    orClose(b.Low, b.Close),
			Close:  b.Close,
			Volume: int64(b.Volume),
			Price:  b.Close,
		})
	}

	if len(historical) == 0 {
		return EmptyPayload(symbol, cadence, now)
	}

	sort.SliceStable(historical, func(i, j int) bool {
		return historical[i].Time < historical[j].Time
	})

	first, last := historical[0], historical[len(historical)-1]
	high, low := first.High, first.Low
	var volume int64
	for _, p := range historical {
		high = math.Max(high, p.High)
		low = math.Min(low, p.Low)
		volume += p.Volume
	}

	change := 0.0
	if first.Open != 0 {
		change = (last.Close - first.Open) / first.Open * 100
	}

	return models.MQuotePayload{
		Symbol:     symbol,
		Duration:   string(cadence),
		Price:      last.Close,
		Change:     change,
		Historical: historical,
		High:       high,
		Low:        low,
		Volume:     volume,
		LastUpdate: now.UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func orClose(v, close float64) float64 {
	if finite(v) {
		return v
	}
	return close
}
