package storage

import (
	"fmt"
	"regexp"

	"quote-broadcaster/src/models"
)

// Catalog entries of the form schema.table.field point at a column of
// provider symbols maintained by another application.
var instrumentRefRegex = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)

// InstrumentRef is a parsed schema.table.field catalog entry.
type InstrumentRef struct {
	Schema string
	Table  string
	Field  string
}

// ParseInstrumentRef reports whether symbol is a column reference.
// Plain provider symbols (TCS.NS, ^NSEI) never match: they have at most one dot.
func ParseInstrumentRef(symbol string) (InstrumentRef, bool) {
	m := instrumentRefRegex.FindStringSubmatch(symbol)
	if len(m) != 4 {
		return InstrumentRef{}, false
	}
	return InstrumentRef{Schema: m[1], Table: m[2], Field: m[3]}, true
}

// -----------------------------------------------------------------------------

// ExpandInstrumentRefs replaces reference entries by one instrument per
// symbol found in the column. Expanded rows inherit the entry's sector.
func (d *PostgresDB) ExpandInstrumentRefs(instruments []models.MInstrument) ([]models.MInstrument, error) {
	var out []models.MInstrument
	seen := make(map[string]bool)

	add := func(in models.MInstrument) {
		if seen[in.Symbol] {
			return
		}
		seen[in.Symbol] = true
		out = append(out, in)
	}

	for _, in := range instruments {
		ref, ok := ParseInstrumentRef(in.Symbol)
		if !ok {
			add(in)
			continue
		}

		symbols, err := d.GetSymbolsFromTable(ref.Schema, ref.Table, ref.Field)
		if err != nil {
			return out, fmt.Errorf("failed to load symbols from %s: %w", in.Symbol, err)
		}
		d.Logger.Info("Loaded %d symbols from %s", len(symbols), in.Symbol)
		for _, s := range symbols {
			add(models.MInstrument{Symbol: s, Name: s, Sector: in.Sector})
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	// identifiers are \w+ (see instrumentRefRegex) and quoted
	query := fmt.Sprintf(`SELECT DISTINCT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}
