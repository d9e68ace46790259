package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) (*SQLiteCache, error) {
	if filename == "" {
		filename = "file::memory:"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite cache: %w", err)
	}
	// an in-memory db exists per connection
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			expires INTEGER,
			requested_at INTEGER,
			received_at INTEGER,
			bytes BLOB
		)`,
		"CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to create sqlite cache: %w", err)
		}
	}
	return &SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteCache) Get(key string) (Entry, bool, error) {
	entry := Entry{Key: key}
	var exp, req, rec int64
	err := s.db.QueryRow("SELECT expires, requested_at, received_at, bytes FROM cache WHERE key = ?", key).
		Scan(&exp, &req, &rec, &entry.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry.Expires = time.Unix(0, exp)
	entry.RequestedAt = time.Unix(0, req)
	entry.ReceivedAt = time.Unix(0, rec)
	return entry, true, nil
}

func (s *SQLiteCache) Put(e Entry) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cache 
		(key, expires, requested_at, received_at, bytes) VALUES (?, ?, ?, ?, ?)`,
		e.Key, e.Expires.UnixNano(), e.RequestedAt.UnixNano(), e.ReceivedAt.UnixNano(), e.Bytes)
	return err
}

func (s *SQLiteCache) Purge(key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

func (s *SQLiteCache) Keys(prefix string, cb func(string)) error {
	rows, err := s.db.Query("SELECT key FROM cache WHERE substr(key, 1, length(?)) = ? ORDER BY key", prefix, prefix)
	if err != nil {
		return err
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	// the single connection is free again, so cb may use the cache
	for _, key := range keys {
		cb(key)
	}
	return nil
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
