// Package source provides id-keyed, re-readable log line sources.
package source

import (
	"context"
	"errors"
)

// ErrClosed is returned when reading from a closed source.
var ErrClosed = errors.New("source closed")

// Record is one stored log line.
type Record struct {
	Line string
	ID   int64
}

// Source is a re-readable sequence of log lines keyed by increasing ids.
type Source interface {
	// Count returns the number of stored lines.
	Count(ctx context.Context) (int64, error)
	// Read returns up to batchSize records with id > startID, ordered by id.
	Read(ctx context.Context, startID int64, batchSize int) ([]Record, error)
	// Close releases the handle.
	Close() error
}

// Opener opens a new independent handle onto the same underlying data.
// Parallel readers each open their own handle.
type Opener func(ctx context.Context) (Source, error)
