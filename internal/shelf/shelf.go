// Package shelf persists raw subject data between runs, keyed by subject.
package shelf

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get for a key that was never stored.
	ErrKeyNotFound = errors.New("shelf: key not found")
	// ErrReadOnly is returned when writing to a shelf opened from an archive
	// format it cannot write back.
	ErrReadOnly = errors.New("shelf: read only")
	// ErrUnknownDriver is returned by Open for drivers other than file and sqlite3.
	ErrUnknownDriver = errors.New("shelf: unknown driver")
)

// Store is a persistent key → blob map.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Keys() ([]string, error)
	Close() error
}

// Open opens a shelf with the named driver: "file" (the default) or "sqlite3".
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "file":
		return OpenFile(path)
	case "sqlite3":
		return OpenSQL(path)
	}
	return nil, fmt.Errorf("driver %q: %w", driver, ErrUnknownDriver)
}
