// Package cache stores the responses kept by the simulated edge.
package cache

import (
	"time"
)

// Provider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent HTTP responses.
// Entries are returned whether fresh or stale, so that the caller can
// revalidate them.
//
// Implementations must be thread-safe!
type Provider interface {
	// Get returns the entry stored under key, if any.
	Get(key string) (Entry, bool, error)
	// Put stores the entry under its key, replacing any previous one.
	Put(entry Entry) error
	// Purge removes the entry for the given key.
	Purge(key string) error
	// Keys calls the given callback for each key with the given prefix.
	Keys(prefix string, cb func(string)) error
	Close() error
}

type Entry struct {
	Key string
	// Expires is when the stored response stops being fresh.
	Expires     time.Time
	RequestedAt time.Time
	ReceivedAt  time.Time
	Bytes       []byte
}
