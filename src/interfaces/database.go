package interfaces

import "quote-broadcaster/src/models"

// -----------------------------------------------------------------------------
// IInstrumentStore defines the contract for instrument catalog storage.
// -----------------------------------------------------------------------------

type IInstrumentStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SeedInstruments upserts the catalog entries (symbol is the key).
	SeedInstruments(instruments []models.MInstrument) error

	// -----------------------------------------------------------------------------

	// ListInstruments returns the catalog ordered by insertion id.
	ListInstruments() ([]models.MInstrument, error)

	// -----------------------------------------------------------------------------

	// UpdateLastPrices records the latest known price for each snapshot symbol.
	UpdateLastPrices(snapshots []models.MPriceSnapshot) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
