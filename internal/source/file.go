package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// File serves the lines of a text file. Ids are 1-based line numbers.
// Line start offsets are indexed once and shared by every handle of the same
// opener, so a handle seeks straight to its first line.
type File struct {
	f       *os.File
	offsets []int64
}

// FileOpener indexes path and returns an Opener producing handles onto it.
func FileOpener(path string) (Opener, error) {
	offsets, err := indexLines(path)
	if err != nil {
		return nil, err
	}
	return func(context.Context) (Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &File{f: f, offsets: offsets}, nil
	}, nil
}

// indexLines records the byte offset of every line start.
func indexLines(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		offsets []int64
		pos     int64
	)
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			offsets = append(offsets, pos)
			pos += int64(len(line))
		}
		if errors.Is(err, io.EOF) {
			return offsets, nil
		}
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
	}
}

// Count returns the number of lines in the file.
func (s *File) Count(context.Context) (int64, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	return int64(len(s.offsets)), nil
}

// Read returns up to batchSize lines after line startID.
func (s *File) Read(ctx context.Context, startID int64, batchSize int) ([]Record, error) {
	if s.f == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if startID < 0 {
		startID = 0
	}
	if batchSize <= 0 || startID >= int64(len(s.offsets)) {
		return nil, nil
	}

	if _, err := s.f.Seek(s.offsets[startID], io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek line %d: %w", startID+1, err)
	}

	end := min(startID+int64(batchSize), int64(len(s.offsets)))
	records := make([]Record, 0, end-startID)
	r := bufio.NewReader(s.f)
	for id := startID + 1; id <= end; id++ {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", id, err)
		}
		records = append(records, Record{ID: id, Line: strings.TrimRight(line, "\r\n")})
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return records, nil
}

// Close closes the file handle.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
