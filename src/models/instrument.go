package models

import "time"

// MInstrument is a catalog entry. Symbols are provider symbols (e.g. "TCS.NS").
type MInstrument struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
	Sector string `json:"sector" yaml:"sector"`
}

// MPriceSnapshot is the last known price of an instrument as persisted in the catalog.
type MPriceSnapshot struct {
	Symbol     string
	Price      float64
	Change     float64
	LastUpdate time.Time
}

// MSchedulerStats summarizes the broadcast scheduler state.
type MSchedulerStats struct {
	Connections   int   `json:"connections"`
	Instruments   int   `json:"instruments"`
	CacheEntries  int   `json:"cache_entries"`
	InFlight      int   `json:"in_flight"`
	Ticks         int64 `json:"ticks"`
	Fetches       int64 `json:"fetches"`
	FetchFailures int64 `json:"fetch_failures"`
	Pushes        int64 `json:"pushes"`
	PushFailures  int64 `json:"push_failures"`
	TickErrors    int64 `json:"tick_errors"`
	LastTickEpoch int64 `json:"last_tick"`
}

// DefaultCatalog is the instrument list served when none is configured.
func DefaultCatalog() []MInstrument {
	return []MInstrument{
		{Symbol: "RELIANCE.NS", Name: "Reliance Industries", Sector: "Energy"},
		{Symbol: "TCS.NS", Name: "Tata Consultancy Services", Sector: "Technology"},
		{Symbol: "HDFCBANK.NS", Name: "HDFC Bank", Sector: "Banking"},
		{Symbol: "INFY.NS", Name: "Infosys", Sector: "Technology"},
		{Symbol: "ICICIBANK.NS", Name: "ICICI Bank", Sector: "Banking"},
		{Symbol: "HINDUNILVR.NS", Name: "Hindustan Unilever", Sector: "Consumer Goods"},
		{Symbol: "ITC.NS", Name: "ITC", Sector: "Consumer Goods"},
		{Symbol: "SBIN.NS", Name: "State Bank of India", Sector: "Banking"},
		{Symbol: "BHARTIARTL.NS", Name: "Bharti Airtel", Sector: "Telecommunications"},
		{Symbol: "LT.NS", Name: "Larsen & Toubro", Sector: "Engineering"},
	}
}
