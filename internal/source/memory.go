package source

import (
	"context"
	"sync/atomic"
)

// Memory serves lines held in memory. Ids are 1-based line positions.
type Memory struct {
	lines  []string
	closed atomic.Bool
}

// NewMemory creates an in-memory source over lines. The slice is not copied
// and must not be modified while the source is in use.
func NewMemory(lines []string) *Memory {
	return &Memory{lines: lines}
}

// MemoryOpener returns an Opener handing out independent handles over lines.
func MemoryOpener(lines []string) Opener {
	return func(context.Context) (Source, error) {
		return NewMemory(lines), nil
	}
}

// Count returns the number of lines.
func (m *Memory) Count(context.Context) (int64, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	return int64(len(m.lines)), nil
}

// Read returns up to batchSize records after startID.
func (m *Memory) Read(ctx context.Context, startID int64, batchSize int) ([]Record, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if startID < 0 {
		startID = 0
	}
	if batchSize <= 0 || startID >= int64(len(m.lines)) {
		return nil, nil
	}

	end := min(startID+int64(batchSize), int64(len(m.lines)))
	records := make([]Record, 0, end-startID)
	for i := startID; i < end; i++ {
		records = append(records, Record{ID: i + 1, Line: m.lines[i]})
	}
	return records, nil
}

// Close marks the handle closed.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
