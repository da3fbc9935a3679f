package jobs

import (
	"context"
	"time"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/utils"

	"github.com/go-co-op/gocron"
)

// PriceSource supplies the latest cached price per symbol.
type PriceSource interface {
	LatestPrices(ctx context.Context) ([]models.MPriceSnapshot, error)
}

// -----------------------------------------------------------------------------

// Housekeeping runs the periodic maintenance jobs of the service.
type Housekeeping struct {
	cron   *gocron.Scheduler
	store  interfaces.IInstrumentStore
	prices PriceSource
	market *utils.MarketScheduler
	config models.MJobsConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHousekeeping(cfg models.MJobsConfig, store interfaces.IInstrumentStore, prices PriceSource, market *utils.MarketScheduler, log *logger.Logger) *Housekeeping {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Housekeeping{
		cron:   cron,
		store:  store,
		prices: prices,
		market: market,
		config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Start registers the jobs and runs them in the background.
func (h *Housekeeping) Start() error {
	minutes := h.config.PriceSnapshotMinutes
	if minutes <= 0 {
		minutes = 5
	}

	if _, err := h.cron.Every(minutes).Minutes().Do(h.persistPrices); err != nil {
		return err
	}
	if _, err := h.cron.Every(1).Hour().Do(h.refreshCalendars); err != nil {
		return err
	}

	h.cron.StartAsync()
	h.Logger.Info("Housekeeping started (price snapshot every %d min)", minutes)
	return nil
}

// Stop waits for running jobs to finish.
func (h *Housekeeping) Stop() {
	h.cron.Stop()
	h.Logger.Info("Housekeeping stopped")
}

// -----------------------------------------------------------------------------

func (h *Housekeeping) persistPrices() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := h.PersistPrices(ctx); err != nil {
		h.Logger.Error("Price snapshot failed: %v", err)
	}
}

// PersistPrices writes the latest cached price of every symbol to the catalog,
// rounded to 2 decimals. It returns the number of rows written.
func (h *Housekeeping) PersistPrices(ctx context.Context) (int, error) {
	prices, err := h.prices.LatestPrices(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, nil
	}

	for i := range prices {
		prices[i].Price = helpers.RoundPrice(prices[i].Price)
		prices[i].Change = helpers.RoundPrice(prices[i].Change)
	}
	if err := h.store.UpdateLastPrices(prices); err != nil {
		return 0, helpers.NewDatabaseError("persist last prices", err)
	}

	h.Logger.Debug("Persisted %d last prices", len(prices))
	return len(prices), nil
}

// -----------------------------------------------------------------------------

// refreshCalendars picks up catalog changes made outside the service.
func (h *Housekeeping) refreshCalendars() {
	if h.market == nil {
		return
	}
	instruments, err := h.store.ListInstruments()
	if err != nil {
		h.Logger.Warning("Catalog reload failed: %v", err)
		return
	}

	symbols := make([]string, len(instruments))
	for i, in := range instruments {
		symbols[i] = in.Symbol
	}
	h.market.UpdateSymbols(symbols)
}
