package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/chipview/pkg/metrics"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// Snapshot persistence. One SQLite database holds the most recently
// materialized aggregate set per dimension, so client-side exports work
// across restarts and without the network. The file is rewritten atomically
// per save; pkg/watcher watches it so an external refresh invalidates the
// in-memory copy.

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS aggregate_snapshots (
	dimension   TEXT NOT NULL,
	rank        INTEGER NOT NULL,
	label       TEXT NOT NULL,
	total_value REAL NOT NULL,
	cnt         INTEGER NOT NULL,
	avg_value   REAL NOT NULL,
	PRIMARY KEY (dimension, rank)
);
CREATE TABLE IF NOT EXISTS snapshot_meta (
	dimension  TEXT PRIMARY KEY,
	fetched_at TEXT NOT NULL,
	row_count  INTEGER NOT NULL
);
`

// SnapshotStore reads and writes dataset snapshots.
type SnapshotStore struct {
	db   *sql.DB
	path string
}

// OpenSnapshotStore opens (creating if needed) the snapshot database at path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot database: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot schema: %w", err)
	}

	return &SnapshotStore{db: db, path: path}, nil
}

// Path returns the database file path (for the watcher).
func (s *SnapshotStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveAggregates replaces the stored snapshot for set's dimension.
func (s *SnapshotStore) SaveAggregates(set *AggregateSet) error {
	defer metrics.Timer(metrics.SnapshotWrite)()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM aggregate_snapshots WHERE dimension = ?`, string(set.Dimension)); err != nil {
		return fmt.Errorf("clearing old snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO aggregate_snapshots (dimension, rank, label, total_value, cnt, avg_value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range set.Rows() {
		if _, err := stmt.Exec(string(set.Dimension), i+1, r.Label, r.TotalValue, r.Count, r.AvgValue); err != nil {
			return fmt.Errorf("writing snapshot row %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO snapshot_meta (dimension, fetched_at, row_count) VALUES (?, ?, ?)
		 ON CONFLICT(dimension) DO UPDATE SET fetched_at = excluded.fetched_at, row_count = excluded.row_count`,
		string(set.Dimension), set.FetchedAt.UTC().Format(time.RFC3339), set.Len(),
	); err != nil {
		return fmt.Errorf("writing snapshot meta: %w", err)
	}

	return tx.Commit()
}

// LoadAggregates reads the stored snapshot for dim. Returns (nil, nil) when
// no snapshot exists.
func (s *SnapshotStore) LoadAggregates(dim model.Dimension) (*AggregateSet, error) {
	var (
		fetchedAt string
		count     int
	)
	err := s.db.QueryRow(`SELECT fetched_at, row_count FROM snapshot_meta WHERE dimension = ?`, string(dim)).
		Scan(&fetchedAt, &count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot meta: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT label, total_value, cnt, avg_value FROM aggregate_snapshots WHERE dimension = ? ORDER BY rank`,
		string(dim),
	)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot rows: %w", err)
	}
	defer rows.Close()

	out := make([]model.AggregateRow, 0, count)
	for rows.Next() {
		var r model.AggregateRow
		if err := rows.Scan(&r.Label, &r.TotalValue, &r.Count, &r.AvgValue); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}

	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		t = time.Time{}
	}
	return NewAggregateSet(out, dim, t), nil
}
