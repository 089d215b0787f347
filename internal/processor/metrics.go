package processor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/thebtf/logmine/internal/processor"

// Run modes reported as the "mode" metric attribute.
const (
	ModeParallel = "parallel"
	ModeSingle   = "single"
	ModeStream   = "stream"
)

type metrics struct {
	lines     metric.Int64Counter
	shards    metric.Int64Counter
	cancelled metric.Int64Counter
	clusters  metric.Int64Histogram
}

func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	lines, errLines := meter.Int64Counter("logmine.lines.processed",
		metric.WithDescription("Log lines fed to a clusterer"),
		metric.WithUnit("{line}"))
	shards, errShards := meter.Int64Counter("logmine.shards.completed",
		metric.WithDescription("Shards clustered by the worker pool"),
		metric.WithUnit("{shard}"))
	cancelled, errCancelled := meter.Int64Counter("logmine.runs.cancelled",
		metric.WithDescription("Runs stopped by cancellation"),
		metric.WithUnit("{run}"))
	clusters, errClusters := meter.Int64Histogram("logmine.run.clusters",
		metric.WithDescription("Clusters reported by a finished run"),
		metric.WithUnit("{cluster}"))

	if err := errors.Join(errLines, errShards, errCancelled, errClusters); err != nil {
		log.Warn().Err(err).Msg("Failed to create processor metrics, metrics disabled")
		fallback := noop.NewMeterProvider().Meter(meterName)
		lines, _ = fallback.Int64Counter("logmine.lines.processed")
		shards, _ = fallback.Int64Counter("logmine.shards.completed")
		cancelled, _ = fallback.Int64Counter("logmine.runs.cancelled")
		clusters, _ = fallback.Int64Histogram("logmine.run.clusters")
	}

	return &metrics{lines: lines, shards: shards, cancelled: cancelled, clusters: clusters}
}

func modeAttr(mode string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("mode", mode))
}

func (m *metrics) addLines(ctx context.Context, mode string, n int) {
	if n > 0 {
		m.lines.Add(ctx, int64(n), modeAttr(mode))
	}
}

func (m *metrics) shardDone(ctx context.Context) {
	m.shards.Add(ctx, 1)
}

func (m *metrics) runCancelled(ctx context.Context, mode string) {
	m.cancelled.Add(ctx, 1, modeAttr(mode))
}

func (m *metrics) runFinished(ctx context.Context, mode string, clusters int) {
	m.clusters.Record(ctx, int64(clusters), modeAttr(mode))
}
