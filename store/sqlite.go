package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/always-cache/date-probe/report"
)

type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens or creates the database file. The path "memory"
// opens a shared in-memory database.
func NewSQLiteStore(ctx context.Context, filename string) (*SQLiteStore, error) {
	if filename == "memory" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db, writeMutex: &sync.Mutex{}}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		date_on_cache_hit TEXT,
		body BLOB NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS url_started_idx ON sessions (url, started_at DESC)")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, result *report.SessionResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sessions
		(id, url, status, started_at, date_on_cache_hit, body) VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.URL, string(result.Status), result.StartedAt.UnixNano(),
		string(result.Summary.DateOnCacheHit), body)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, url string, limit int) ([]*report.SessionResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM sessions WHERE url = ? ORDER BY started_at DESC, id LIMIT ?", url, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*report.SessionResult, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var result report.SessionResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decoding stored session: %w", err)
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
