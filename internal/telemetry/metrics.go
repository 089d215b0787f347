// Package telemetry configures the OpenTelemetry meter provider used by logmine.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Supported metrics exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "logmine"

// ErrUnknownExporter is returned for an unsupported exporter name.
var ErrUnknownExporter = errors.New("unknown metrics exporter")

// ShutdownFunc flushes pending metrics and releases the provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global meter provider exporting to w with the named
// exporter. With ExporterNone (or an empty name) the global provider is left
// untouched and metrics are dropped.
func Setup(exporter string, w io.Writer, version string) (ShutdownFunc, error) {
	provider, err := NewMeterProvider(exporter, w, version)
	if err != nil {
		return noopShutdown, err
	}
	if provider == nil {
		return noopShutdown, nil
	}

	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

// NewMeterProvider builds a meter provider for exporter, or returns nil for
// ExporterNone.
func NewMeterProvider(exporter string, w io.Writer, version string) (*sdkmetric.MeterProvider, error) {
	var exp sdkmetric.Exporter
	switch exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		e, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exp = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(r),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	), nil
}
