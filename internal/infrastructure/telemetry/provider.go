// Package telemetry wires OpenTelemetry tracing, metrics and log export.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Export is the collector target and service identity shared by the trace,
// metric and log pipelines
type Export struct {
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string
}

func (e Export) resource() (*resource.Resource, error) {
	version := e.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(e.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}

// pipeline is the lifecycle every provider shares. shutdown is nil while
// the signal is disabled.
type pipeline struct {
	signal   string
	logger   *zap.Logger
	shutdown func(context.Context) error
}

// IsEnabled reports whether the signal is exported
func (p *pipeline) IsEnabled() bool {
	return p != nil && p.shutdown != nil
}

// Shutdown flushes buffered telemetry and stops the exporter
func (p *pipeline) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown %s pipeline: %w", p.signal, err)
	}
	p.logger.Info("Telemetry pipeline stopped", zap.String("signal", p.signal))
	return nil
}

func (p *pipeline) started(e Export, fields ...zap.Field) {
	p.logger.Info("Telemetry pipeline started", append([]zap.Field{
		zap.String("signal", p.signal),
		zap.String("collector_endpoint", e.CollectorEndpoint),
		zap.String("service_name", e.ServiceName),
	}, fields...)...)
}
