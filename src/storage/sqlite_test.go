package storage

import (
	"io"
	"reflect"
	"testing"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

func newMemoryDB(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:"}}
	db, err := NewSQLiteDB(cfg, logger.NewLoggerWithWriter(io.Discard, "StorageTest"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteSeedAndList(t *testing.T) {
	db := newMemoryDB(t)
	catalog := models.DefaultCatalog()

	if err := db.SeedInstruments(catalog); err != nil {
		t.Fatal(err)
	}
	// reseeding is an upsert
	if err := db.SeedInstruments(catalog[:2]); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListInstruments()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, catalog) {
		t.Errorf("ListInstruments() =\n%v\nwant\n%v", got, catalog)
	}
}

func TestSQLiteUpdateLastPrices(t *testing.T) {
	db := newMemoryDB(t)
	if err := db.SeedInstruments(models.DefaultCatalog()[:1]); err != nil {
		t.Fatal(err)
	}

	err := db.UpdateLastPrices([]models.MPriceSnapshot{
		{Symbol: "RELIANCE.NS", Price: 2500.55, LastUpdate: time.Now()},
		{Symbol: "UNKNOWN.NS", Price: 1, LastUpdate: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}

	var price float64
	if err := db.DB.QueryRow(`SELECT last_price FROM stocks WHERE symbol = ?`, "RELIANCE.NS").Scan(&price); err != nil {
		t.Fatal(err)
	}
	if price != 2500.55 {
		t.Errorf("last_price = %v", price)
	}
}

func TestParseInstrumentRef(t *testing.T) {
	if ref, ok := ParseInstrumentRef("market.watchlist.ticker"); !ok || ref.Table != "watchlist" || ref.Field != "ticker" {
		t.Errorf("ref = %+v, %v", ref, ok)
	}
	for _, s := range []string{"TCS.NS", "^NSEI", "AAPL"} {
		if _, ok := ParseInstrumentRef(s); ok {
			t.Errorf("%q parsed as a column reference", s)
		}
	}
}
