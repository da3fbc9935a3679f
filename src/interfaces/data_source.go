package interfaces

import (
	"context"

	"quote-broadcaster/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataProvider fetches historical bars from an external market-data source.
// -----------------------------------------------------------------------------

type IMarketDataProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// History returns bars for symbol over the lookback period (e.g. "1mo")
	// sampled at interval (e.g. "1d"), oldest first. Missing values are NaN.
	History(ctx context.Context, symbol, period, interval string) ([]models.MBar, error)
}
