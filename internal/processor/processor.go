// Package processor runs the clustering pipeline over a log source, either
// sharded across a worker pool or on a single clusterer.
package processor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/logmine/internal/preprocess"
	"github.com/thebtf/logmine/internal/source"
	"github.com/thebtf/logmine/internal/worker"
	"github.com/thebtf/logmine/pkg/models"
	"github.com/thebtf/logmine/pkg/similarity"
)

// ErrNoSource is returned by New when no source opener is given.
var ErrNoSource = errors.New("no log source")

// Config holds the pipeline parameters.
type Config struct {
	Clustering similarity.Config
	Delimiter  string
	Variables  []string
	MinMembers uint64
	// BatchSize is the number of rows per shard (sharded runs) or per read
	// (single-core runs). Values <= 0 select AutoBatchSize.
	BatchSize int
	// Workers is the pool size for sharded runs. Values <= 0 use runtime.NumCPU().
	Workers    int
	SingleCore bool
}

// DefaultConfig returns the default pipeline parameters.
func DefaultConfig() Config {
	return Config{
		Clustering: similarity.DefaultConfig(),
		Delimiter:  preprocess.DefaultDelimiter,
		MinMembers: 1,
	}
}

type options struct {
	meterProvider metric.MeterProvider
}

// Option configures a Processor or a Streamer.
type Option func(*options)

// WithMeterProvider sets the meter provider used for run metrics.
// The global provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func collectOptions(opts []Option) options {
	o := options{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Processor clusters the lines of one log source.
type Processor struct {
	open      source.Opener
	pre       *preprocess.Preprocessor
	merger    *similarity.Merger
	metrics   *metrics
	cfg       Config
	total     int64
	batchSize int
	workers   int
}

// New validates cfg, opens a probe handle on the source to check that it is
// reachable and counts its rows. Any failure here is fatal for the run.
func New(ctx context.Context, cfg Config, open source.Opener, opts ...Option) (*Processor, error) {
	if open == nil {
		return nil, ErrNoSource
	}

	pre, err := preprocess.New(cfg.Delimiter, cfg.Variables)
	if err != nil {
		return nil, err
	}
	merger, err := similarity.NewMerger(cfg.Clustering)
	if err != nil {
		return nil, err
	}

	probe, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open log source: %w", err)
	}
	defer probe.Close()

	total, err := probe.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count log source: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = AutoBatchSize(total, workers)
	}

	p := &Processor{
		open:      open,
		pre:       pre,
		merger:    merger,
		metrics:   newMetrics(collectOptions(opts).meterProvider),
		cfg:       cfg,
		total:     total,
		batchSize: batchSize,
		workers:   workers,
	}

	log.Debug().
		Int64("total", total).
		Int("batchSize", batchSize).
		Int("workers", workers).
		Bool("singleCore", cfg.SingleCore).
		Msg("Processor ready")

	return p, nil
}

// Total returns the row count seen when the processor was created.
func (p *Processor) Total() int64 {
	return p.total
}

// BatchSize returns the effective batch size.
func (p *Processor) BatchSize() int {
	return p.batchSize
}

// Run clusters the whole source. It returns ok=false and no clusters when
// ctx is cancelled before the run completes; that is not an error.
func (p *Processor) Run(ctx context.Context) (models.ClusterList, bool, error) {
	if p.cfg.SingleCore {
		return p.RunSingle(ctx)
	}
	return p.RunParallel(ctx)
}

// RunSingle reads the source batch by batch into one clusterer.
func (p *Processor) RunSingle(ctx context.Context) (models.ClusterList, bool, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("mode", ModeSingle).Logger()
	started := time.Now()

	src, err := p.open(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("open log source: %w", err)
	}
	defer src.Close()

	clusterer, err := similarity.NewClusterer(p.cfg.Clustering)
	if err != nil {
		return nil, false, err
	}

	var (
		lastID int64
		lines  int
	)
	for {
		if ctx.Err() != nil {
			p.metrics.runCancelled(ctx, ModeSingle)
			logger.Warn().Int("lines", lines).Msg("Run cancelled")
			return nil, false, nil
		}

		records, err := src.Read(ctx, lastID, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				p.metrics.runCancelled(ctx, ModeSingle)
				logger.Warn().Int("lines", lines).Msg("Run cancelled")
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("read after id %d: %w", lastID, err)
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			clusterer.ProcessLine(p.pre.Process(r.Line))
		}
		lastID = records[len(records)-1].ID
		lines += len(records)
		p.metrics.addLines(ctx, ModeSingle, len(records))
	}

	result := clusterer.Result(p.cfg.MinMembers)
	p.metrics.runFinished(ctx, ModeSingle, len(result))
	logger.Info().
		Int("lines", lines).
		Int("clusters", len(result)).
		Dur("took", time.Since(started)).
		Msg("Run finished")

	return result, true, nil
}

// RunParallel shards the source, clusters every shard on the worker pool
// and folds the shard results in shard order.
//
// The pool is taken from ctx (see worker.WithPool); without one a private
// pool is used for this run. Tasks do not observe ctx directly: only this
// goroutine watches it, and on cancellation it stops the tasks, closes the
// pool and returns ok=false. The first task error aborts the remaining ones.
func (p *Processor) RunParallel(ctx context.Context) (models.ClusterList, bool, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("mode", ModeParallel).Logger()
	started := time.Now()

	pool, shared := worker.FromContext(ctx)
	if !shared {
		pool = worker.NewPool(p.workers)
		defer pool.Close()
	}

	shards := Segment(p.total, p.batchSize)
	logger.Debug().
		Int("shards", len(shards)).
		Int("workers", pool.Size()).
		Msg("Run started")

	taskCtx, cancelTasks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelTasks()

	results := make([]models.ClusterList, len(shards))
	g, gctx := errgroup.WithContext(taskCtx)
	for _, sh := range shards {
		sh := sh
		g.Go(func() error {
			return pool.Do(gctx, func(ctx context.Context) error {
				list, err := p.clusterShard(ctx, sh)
				if err != nil {
					return fmt.Errorf("shard %d: %w", sh.Index, err)
				}
				results[sh.Index] = list
				p.metrics.shardDone(ctx)
				return nil
			})
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("Run failed")
			return nil, false, err
		}
	case <-ctx.Done():
		cancelTasks()
		<-done
		pool.Close()
		p.metrics.runCancelled(taskCtx, ModeParallel)
		logger.Warn().Int("shards", len(shards)).Msg("Run cancelled")
		return nil, false, nil
	}

	var final models.ClusterList
	for i, list := range results {
		if i == 0 {
			final = list.Clone()
			continue
		}
		p.merger.Merge(&final, list)
	}
	final = final.Filter(p.cfg.MinMembers)

	p.metrics.runFinished(taskCtx, ModeParallel, len(final))
	logger.Info().
		Int64("lines", p.total).
		Int("shards", len(shards)).
		Int("clusters", len(final)).
		Dur("took", time.Since(started)).
		Msg("Run finished")

	return final, true, nil
}

// clusterShard reads one shard through its own source handle and clusters it.
// The result is unfiltered so the reduce step sees every member.
func (p *Processor) clusterShard(ctx context.Context, sh Shard) (models.ClusterList, error) {
	src, err := p.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open log source: %w", err)
	}
	defer src.Close()

	records, err := src.Read(ctx, sh.StartID, sh.Size)
	if err != nil {
		return nil, err
	}

	clusterer, err := similarity.NewClusterer(p.cfg.Clustering)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clusterer.ProcessLine(p.pre.Process(r.Line))
	}
	p.metrics.addLines(ctx, ModeParallel, len(records))

	log.Debug().
		Int("shard", sh.Index).
		Int("lines", len(records)).
		Int("clusters", clusterer.Len()).
		Msg("Shard clustered")

	return clusterer.Result(1), nil
}
