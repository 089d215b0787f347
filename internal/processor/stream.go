package processor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/logmine/internal/preprocess"
	"github.com/thebtf/logmine/internal/source"
	"github.com/thebtf/logmine/pkg/models"
	"github.com/thebtf/logmine/pkg/similarity"
)

// maxLineSize bounds a single streamed line.
const maxLineSize = 1024 * 1024

// Streamer clusters an unbounded line stream on one clusterer.
// Cancellation is a normal stop: the clusters gathered so far are returned.
type Streamer struct {
	pre       *preprocess.Preprocessor
	clusterer *similarity.Clusterer
	metrics   *metrics
	cfg       Config
}

// NewStreamer validates cfg and creates an empty streamer.
func NewStreamer(cfg Config, opts ...Option) (*Streamer, error) {
	pre, err := preprocess.New(cfg.Delimiter, cfg.Variables)
	if err != nil {
		return nil, err
	}
	clusterer, err := similarity.NewClusterer(cfg.Clustering)
	if err != nil {
		return nil, err
	}

	return &Streamer{
		pre:       pre,
		clusterer: clusterer,
		metrics:   newMetrics(collectOptions(opts).meterProvider),
		cfg:       cfg,
	}, nil
}

// Add feeds one raw line to the clusterer.
func (s *Streamer) Add(line string) {
	s.clusterer.ProcessLine(s.pre.Process(line))
}

// Result returns the clusters gathered so far, filtered by MinMembers.
func (s *Streamer) Result() models.ClusterList {
	return s.clusterer.Result(s.cfg.MinMembers)
}

// Run reads r line by line until EOF or until ctx is cancelled and returns
// the clusters gathered. A read error other than EOF is returned together
// with the partial result.
func (s *Streamer) Run(ctx context.Context, r io.Reader) (models.ClusterList, error) {
	logger := streamLogger()
	started := time.Now()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- strings.TrimRight(sc.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	var n int
	for {
		select {
		case <-ctx.Done():
			s.metrics.addLines(ctx, ModeStream, n)
			s.metrics.runCancelled(ctx, ModeStream)
			logger.Debug().Msg("Stream cancelled")
			return s.finish(ctx, logger, n, started), nil

		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				s.metrics.addLines(ctx, ModeStream, n)
				result := s.finish(ctx, logger, n, started)
				if err != nil {
					return result, fmt.Errorf("read stream: %w", err)
				}
				return result, nil
			}
			s.Add(line)
			n++
		}
	}
}

// Follow clusters the lines of path, including lines appended while it runs,
// until ctx is cancelled.
func (s *Streamer) Follow(ctx context.Context, path string) (models.ClusterList, error) {
	logger := streamLogger().With().Str("path", path).Logger()
	started := time.Now()

	var n int
	err := source.Follow(ctx, path, func(line string) {
		s.Add(line)
		n++
	})
	s.metrics.addLines(ctx, ModeStream, n)
	if ctx.Err() != nil {
		s.metrics.runCancelled(ctx, ModeStream)
	}

	return s.finish(ctx, logger, n, started), err
}

func (s *Streamer) finish(ctx context.Context, logger zerolog.Logger, lines int, started time.Time) models.ClusterList {
	result := s.Result()
	s.metrics.runFinished(ctx, ModeStream, len(result))
	logger.Info().
		Int("lines", lines).
		Int("clusters", len(result)).
		Dur("took", time.Since(started)).
		Msg("Stream finished")
	return result
}

func streamLogger() zerolog.Logger {
	return log.With().Str("run_id", uuid.NewString()).Str("mode", ModeStream).Logger()
}
