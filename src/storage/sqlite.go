package storage

import (
	"database/sql"
	"fmt"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open "+dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping "+dsn, err)
	}
	// sqlite allows one writer; keeps :memory: databases on a single connection too
	db.SetMaxOpenConns(1)

	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS stocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT UNIQUE NOT NULL,
			company_name TEXT NOT NULL,
			sector TEXT,
			last_price REAL,
			last_update TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create stocks", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SeedInstruments upserts the catalog. Existing prices are kept.
func (d *SQLiteDB) SeedInstruments(instruments []models.MInstrument) error {
	if len(instruments) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stocks (symbol, company_name, sector)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = excluded.company_name,
			sector = excluded.sector
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range instruments {
		if _, err := stmt.Exec(in.Symbol, in.Name, in.Sector); err != nil {
			return fmt.Errorf("seed %s: %w", in.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("seed stocks", err)
	}
	d.Logger.Info("Seeded %d instruments", len(instruments))
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) ListInstruments() ([]models.MInstrument, error) {
	rows, err := d.DB.Query(`SELECT symbol, company_name, COALESCE(sector, '') FROM stocks ORDER BY id`)
	if err != nil {
		return nil, helpers.NewDatabaseError("list stocks", err)
	}
	defer rows.Close()

	return scanInstruments(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) UpdateLastPrices(prices []models.MPriceSnapshot) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE stocks SET last_price = ?, last_update = ? WHERE symbol = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.Exec(p.Price, p.LastUpdate.UTC(), p.Symbol); err != nil {
			return fmt.Errorf("update %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("update last prices", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func scanInstruments(rows *sql.Rows) ([]models.MInstrument, error) {
	var out []models.MInstrument
	for rows.Next() {
		var in models.MInstrument
		if err := rows.Scan(&in.Symbol, &in.Name, &in.Sector); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
