package gorm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/logmine/internal/source"
)

// DefaultImportBatch is the number of rows inserted per statement by Import.
const DefaultImportBatch = 500

// Count returns the number of rows in the log table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Table(s.table).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return count, nil
}

// Read returns up to batchSize rows with id > startID, ordered by id.
func (s *Store) Read(ctx context.Context, startID int64, batchSize int) ([]source.Record, error) {
	if batchSize <= 0 {
		return nil, nil
	}

	var entries []LogEntry
	err := s.DB.WithContext(ctx).
		Table(s.table).
		Select("id", "log_message").
		Where("id > ?", startID).
		Order("id").
		Limit(batchSize).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("read %s after id %d: %w", s.table, startID, err)
	}

	records := make([]source.Record, len(entries))
	for i, e := range entries {
		records[i] = source.Record{ID: e.ID, Line: e.LogMessage}
	}
	return records, nil
}

// LineFunc rewrites a line before it is stored.
type LineFunc func(string) string

// Import appends every line read from r to the log table in batches and
// returns the number of rows written. Each line passes through fns in order.
func (s *Store) Import(ctx context.Context, r io.Reader, batchSize int, fns ...LineFunc) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatch
	}

	var (
		total int64
		batch = make([]LogEntry, 0, batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.DB.WithContext(ctx).Table(s.table).Create(&batch).Error; err != nil {
			return fmt.Errorf("insert into %s: %w", s.table, err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		for _, fn := range fns {
			line = fn(line)
		}
		batch = append(batch, LogEntry{LogMessage: line})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	log.Debug().Str("table", s.table).Int64("rows", total).Msg("Imported log lines")
	return total, nil
}

// Opener returns a source.Opener that opens a fresh Store for every call.
func Opener(cfg Config) source.Opener {
	return func(context.Context) (source.Source, error) {
		store, err := NewStore(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
