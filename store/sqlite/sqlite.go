// Package sqlite persists built datasets as immutable snapshots. A snapshot
// records which indicator was built, when its data was fetched, and every
// joined row, so past exports can be reproduced after the cache has moved on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/openstat/go-wbdata/dataset"
	"github.com/shopspring/decimal"
)

// Store is a SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at dbPath. Use ":memory:" for
// an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	store := &Store{db: db}
	if err = store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		indicator TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		row_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_rows (
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		entity_key TEXT NOT NULL,
		display_name TEXT NOT NULL,
		group_id TEXT NOT NULL,
		group_name TEXT NOT NULL,
		tier TEXT NOT NULL,
		period INTEGER,
		value TEXT,
		PRIMARY KEY (snapshot_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_indicator ON snapshots(indicator, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot stores one dataset build and returns its snapshot id.
func (s *Store) SaveSnapshot(ctx context.Context, indicator string, fetchedAt time.Time, rows []dataset.Row) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (indicator, fetched_at, row_count) VALUES (?, ?, ?)`,
		indicator, fetchedAt.UTC().Format(time.RFC3339), len(rows))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows
		 (snapshot_id, position, entity_key, display_name, group_id, group_name, tier, period, value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare snapshot rows: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		var period sql.NullInt64
		if row.Year != nil {
			period = sql.NullInt64{Int64: int64(*row.Year), Valid: true}
		}
		var value sql.NullString
		if row.Value != nil {
			value = sql.NullString{String: row.Value.String(), Valid: true}
		}
		_, err = stmt.ExecContext(ctx, id, i, row.Code, row.Name, row.RegionID, row.RegionName, row.IncomeLevel, period, value)
		if err != nil {
			return 0, fmt.Errorf("insert snapshot row %s: %w", row.Code, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recently saved snapshot for indicator, or
// nil if none exists.
func (s *Store) LatestSnapshot(ctx context.Context, indicator string) (*dataset.Snapshot, error) {
	snap := &dataset.Snapshot{Indicator: indicator}
	var fetchedAt string
	var rowCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, fetched_at, row_count FROM snapshots WHERE indicator = ? ORDER BY id DESC LIMIT 1`,
		indicator).Scan(&snap.ID, &fetchedAt, &rowCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	snap.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_key, display_name, group_id, group_name, tier, period, value
		 FROM snapshot_rows WHERE snapshot_id = ? ORDER BY position`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot rows: %w", err)
	}
	defer rows.Close()

	snap.Rows = make([]dataset.Row, 0, rowCount)
	for rows.Next() {
		var row dataset.Row
		var period sql.NullInt64
		var value sql.NullString
		err = rows.Scan(&row.Code, &row.Name, &row.RegionID, &row.RegionName, &row.IncomeLevel, &period, &value)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if period.Valid {
			year := int(period.Int64)
			row.Year = &year
		}
		if value.Valid {
			dec, err := decimal.NewFromString(value.String)
			if err != nil {
				return nil, fmt.Errorf("parse snapshot value %q: %w", value.String, err)
			}
			row.Value = &dec
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}
