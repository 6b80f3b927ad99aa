// Package store persists the medication cache metadata and search history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

// DB wraps a sql.DB with medication helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// OpenMemory creates an in-memory SQLite database for tests.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// Path returns the database location.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS medication_cache (
    id TEXT PRIMARY KEY,
    brand_name TEXT NOT NULL COLLATE NOCASE,
    generic_name TEXT NOT NULL COLLATE NOCASE,
    indications TEXT NOT NULL DEFAULT '',
    raw_data TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(brand_name, generic_name)
);

CREATE TABLE IF NOT EXISTS query_history (
    id TEXT PRIMARY KEY,
    query_text TEXT NOT NULL,
    results_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_history_created ON query_history(created_at);

CREATE TABLE IF NOT EXISTS search_results (
    id TEXT PRIMARY KEY,
    query_id TEXT NOT NULL REFERENCES query_history(id) ON DELETE CASCADE,
    medication_id TEXT NOT NULL REFERENCES medication_cache(id),
    similarity_score REAL NOT NULL,
    rank INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_results_query ON search_results(query_id);
`

// UpsertMedication inserts the medication or refreshes the row with the same
// (brand, generic) pair.
func (d *DB) UpsertMedication(ctx context.Context, m meds.Medication) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal medication: %w", err)
	}

	_, err = d.ExecContext(ctx, `
INSERT INTO medication_cache (id, brand_name, generic_name, indications, raw_data)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    brand_name = excluded.brand_name,
    generic_name = excluded.generic_name,
    indications = excluded.indications,
    raw_data = excluded.raw_data,
    updated_at = datetime('now')`,
		m.ID(), m.BrandName, m.GenericName, m.Indications, string(raw))
	if err != nil {
		return fmt.Errorf("upsert medication %q: %w", m.BrandName, err)
	}
	return nil
}

// ListMedications returns every cached medication ordered by brand name.
func (d *DB) ListMedications(ctx context.Context) ([]meds.Medication, error) {
	rows, err := d.QueryContext(ctx, `SELECT raw_data FROM medication_cache ORDER BY brand_name, generic_name`)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []meds.Medication
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		var m meds.Medication
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode medication: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMedications reports the number of cached medications.
func (d *DB) CountMedications(ctx context.Context) (int, error) {
	var n int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM medication_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count medications: %w", err)
	}
	return n, nil
}

// RecordQuery stores a similarity query and its ranked hits in one transaction.
func (d *DB) RecordQuery(ctx context.Context, query string, hits []meds.SearchHit) (meds.QueryRecord, error) {
	rec := meds.QueryRecord{
		ID:           uuid.NewString(),
		Query:        query,
		ResultsCount: len(hits),
		CreatedAt:    time.Now().UTC(),
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return meds.QueryRecord{}, fmt.Errorf("begin query record: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO query_history (id, query_text, results_count, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.ResultsCount, rec.CreatedAt); err != nil {
		return meds.QueryRecord{}, fmt.Errorf("insert query history: %w", err)
	}

	for i, hit := range hits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_results (id, query_id, medication_id, similarity_score, rank) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), rec.ID, hit.Medication.ID(), hit.Similarity, i+1); err != nil {
			return meds.QueryRecord{}, fmt.Errorf("insert search result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return meds.QueryRecord{}, fmt.Errorf("commit query record: %w", err)
	}
	return rec, nil
}

// RecentQueries returns the newest query records first.
func (d *DB) RecentQueries(ctx context.Context, limit int) ([]meds.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.QueryContext(ctx,
		`SELECT id, query_text, results_count, created_at FROM query_history ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var out []meds.QueryRecord
	for rows.Next() {
		var rec meds.QueryRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.ResultsCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryResults returns the ranked medication ids recorded for a query.
func (d *DB) QueryResults(ctx context.Context, queryID string) ([]string, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT medication_id FROM search_results WHERE query_id = ? ORDER BY rank`, queryID)
	if err != nil {
		return nil, fmt.Errorf("list query results: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan query result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
