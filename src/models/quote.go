package models

import "time"

// -----------------------------------------------------------------------------
// Provider side
// -----------------------------------------------------------------------------

// MBar is one raw OHLCV sample as returned by a market-data provider.
// Missing values are NaN.
type MBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// -----------------------------------------------------------------------------
// Wire side (websocket push + REST snapshot share this shape)
// -----------------------------------------------------------------------------

// MHistoricalPoint is one cleaned bar of a quote payload.
type MHistoricalPoint struct {
	Time   int64   `json:"time"` // epoch ms
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Price  float64 `json:"price"`
}

// MQuotePayload is the snapshot pushed to subscribers for one (symbol, duration).
type MQuotePayload struct {
	Symbol     string             `json:"symbol"`
	Duration   string             `json:"duration"`
	Price      float64            `json:"price"`
	Change     float64            `json:"change"`
	Historical []MHistoricalPoint `json:"historical"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Volume     int64              `json:"volume"`
	LastUpdate int64              `json:"lastUpdate"`
}

// -----------------------------------------------------------------------------
// Client messages
// -----------------------------------------------------------------------------

// MCadenceCommand is the message a websocket client sends to change its duration.
type MCadenceCommand struct {
	Duration *string `json:"duration"`
}

// -----------------------------------------------------------------------------
// Market overview
// -----------------------------------------------------------------------------

type MMarketIndex struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

type MMarketStatus struct {
	Symbol string `json:"symbol"`
	Open   bool   `json:"open"`
}
