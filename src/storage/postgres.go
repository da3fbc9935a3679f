package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB names the schema after the running executable so several
// deployments can share one database.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			symbol TEXT UNIQUE NOT NULL,
			company_name TEXT NOT NULL,
			sector TEXT,
			last_price DOUBLE PRECISION,
			last_update TIMESTAMPTZ
		);
	`, d.table("stocks"))
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create stocks", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SeedInstruments upserts the catalog. Entries written as schema.table.field
// are expanded into the symbols stored in that column.
func (d *PostgresDB) SeedInstruments(instruments []models.MInstrument) error {
	expanded, err := d.ExpandInstrumentRefs(instruments)
	if err != nil {
		return err
	}
	if len(expanded) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (symbol, company_name, sector)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			sector = EXCLUDED.sector
	`, d.table("stocks")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range expanded {
		if _, err := stmt.Exec(in.Symbol, in.Name, in.Sector); err != nil {
			return fmt.Errorf("seed %s: %w", in.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("seed stocks", err)
	}
	d.Logger.Info("Seeded %d instruments", len(expanded))
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListInstruments() ([]models.MInstrument, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`SELECT symbol, company_name, COALESCE(sector, '') FROM %s ORDER BY id`, d.table("stocks")))
	if err != nil {
		return nil, helpers.NewDatabaseError("list stocks", err)
	}
	defer rows.Close()

	return scanInstruments(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) UpdateLastPrices(prices []models.MPriceSnapshot) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`UPDATE %s SET last_price = $1, last_update = $2 WHERE symbol = $3`, d.table("stocks")))
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

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
