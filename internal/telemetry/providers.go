// Package telemetry provides the OpenTelemetry metrics pipeline and the
// custom metrics recorded by the bridge.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds the telemetry initialization parameters.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized OpenTelemetry providers.
// When telemetry is disabled, Providers is inert and Shutdown is a no-op.
type Providers struct {
	serviceName string
	enabled     bool

	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter
}

// Init sets up the metrics pipeline with a Prometheus exporter.
// Metrics are exposed via the prometheus default registry, served wherever
// the caller mounts the promhttp handler.
func Init(_ context.Context, c *Config) (*Providers, error) {
	p := &Providers{
		serviceName: c.ServiceName,
		enabled:     c.Enabled,
	}
	if !c.Enabled {
		return p, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", c.ServiceName))
	p.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	p.Meter = p.MeterProvider.Meter("github.com/emscape/roze-mcp")

	return p, nil
}

// IsEnabled returns true if telemetry was initialized with a real pipeline.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// ServiceName returns the configured service name.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the metrics pipeline.
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() || p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}
