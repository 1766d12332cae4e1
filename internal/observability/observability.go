// Package observability sets up the OpenTelemetry meter provider that the
// workflow counters are reported through.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/ormvat/dossierflow/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config configures the meter provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is the collector URL, e.g. "http://otel-collector:4317".
	// An http scheme selects a plaintext connection. Empty disables export.
	OTLPEndpoint string
	Interval     time.Duration
}

// Provider owns the process meter provider.
type Provider struct {
	config        Config
	meterProvider *sdkmetric.MeterProvider
	logger        logging.Logger
}

// New builds a Provider. With an OTLP endpoint it installs a periodic
// exporting meter provider as the global one; without, it leaves the global
// provider untouched and every counter is a no-op.
func New(ctx context.Context, cfg Config, logger logging.Logger, readers ...sdkmetric.Reader) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dossierflow"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}

	p := &Provider{config: cfg, logger: logger.With("module", "observability")}

	if cfg.OTLPEndpoint == "" && len(readers) == 0 {
		p.logger.Debug(ctx, "metrics export disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("dossierflow.component", "workflow"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.Interval),
		)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)

	p.logger.Info(ctx, "metrics initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.OTLPEndpoint,
		"interval", cfg.Interval.String(),
	)
	return p, nil
}

// Enabled reports whether a meter provider was installed.
func (p *Provider) Enabled() bool {
	return p.meterProvider != nil
}

// Meter returns a meter of the installed provider, or of the global one.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return otel.Meter(name)
	}
	return p.meterProvider.Meter(name, metric.WithInstrumentationVersion(p.config.ServiceVersion))
}

// Shutdown flushes pending metrics and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		p.logger.Error(ctx, "failed to shutdown metric provider", "error", err)
		return err
	}
	return nil
}
