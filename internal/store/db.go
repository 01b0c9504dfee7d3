// Package store records run outputs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	_ "modernc.org/sqlite"

	"github.com/san-kum/boxclim/internal/metrics"
)

var ErrNoRun = errors.New("store: no such run")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS outputs (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	year     REAL NOT NULL,
	variable TEXT NOT NULL,
	value    REAL NOT NULL,
	unit     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, year, variable)
);
`

type DB struct {
	sqlDB *sql.DB
}

type Run struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Years     int
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

// NewRun inserts an empty run and returns its ID.
func (d *DB) NewRun(ctx context.Context, name string) (string, error) {
	id := xid.New().String()
	_, err := d.sqlDB.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UTC().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Row is one recorded value.
type Row struct {
	Year     float64
	Variable string
	Value    float64
	Unit     string
}

// Insert writes rows for runID in one transaction. Existing values for the
// same year and variable are replaced; NaN values are skipped.
func (d *DB) Insert(ctx context.Context, runID string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO outputs (run_id, year, variable, value, unit) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if math.IsNaN(r.Value) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Year, r.Variable, r.Value, r.Unit); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s at %g: %w", r.Variable, r.Year, err)
		}
	}
	return tx.Commit()
}

// Truncate deletes every value of runID recorded after year.
func (d *DB) Truncate(ctx context.Context, runID string, year float64) error {
	_, err := d.sqlDB.ExecContext(ctx, `DELETE FROM outputs WHERE run_id = ? AND year > ?`, runID, year)
	if err != nil {
		return fmt.Errorf("truncate run %s: %w", runID, err)
	}
	return nil
}

// SaveRun stores a complete result as a new run.
func (d *DB) SaveRun(ctx context.Context, name string, result *metrics.Result) (string, error) {
	id, err := d.NewRun(ctx, name)
	if err != nil {
		return "", err
	}
	rows := make([]Row, 0, len(result.Years)*len(result.Series))
	for _, n := range result.Names() {
		for i, v := range result.Series[n] {
			if i >= len(result.Years) {
				break
			}
			rows = append(rows, Row{Year: result.Years[i], Variable: n, Value: v, Unit: result.Units[n]})
		}
	}
	return id, d.Insert(ctx, id, rows)
}

// ListRuns returns every run, newest first.
func (d *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
SELECT r.id, r.name, r.created_at, COUNT(DISTINCT o.year)
FROM runs r LEFT JOIN outputs o ON o.run_id = r.id
GROUP BY r.id
ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &created, &r.Years); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadSeries returns the years and values of one variable of a run.
func (d *DB) LoadSeries(ctx context.Context, runID, variable string) ([]float64, []float64, error) {
	var n int
	if err := d.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return nil, nil, fmt.Errorf("look up run: %w", err)
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
	}

	rows, err := d.sqlDB.QueryContext(ctx,
		`SELECT year, value FROM outputs WHERE run_id = ? AND variable = ? ORDER BY year`,
		runID, variable)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", variable, err)
	}
	defer rows.Close()

	var years, values []float64
	for rows.Next() {
		var y, v float64
		if err := rows.Scan(&y, &v); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", variable, err)
		}
		years = append(years, y)
		values = append(values, v)
	}
	return years, values, rows.Err()
}
