// Package store keeps session results between runs.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/always-cache/date-probe/report"
)

// Store saves session results and lists them per URL, newest first.
//
// Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, result *report.SessionResult) error
	// List returns at most limit results for url, newest first. A limit of
	// zero or less returns all of them.
	List(ctx context.Context, url string, limit int) ([]*report.SessionResult, error)
	Close() error
}

// Open opens the store described by dsn, "sqlite:<path>" or "leveldb:<dir>".
func Open(ctx context.Context, dsn string) (Store, error) {
	kind, path, ok := strings.Cut(dsn, ":")
	if !ok || path == "" {
		return nil, fmt.Errorf("invalid store %q, expected sqlite:<path> or leveldb:<dir>", dsn)
	}
	switch kind {
	case "sqlite":
		return NewSQLiteStore(ctx, path)
	case "leveldb":
		return NewLevelDBStore(path)
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}
