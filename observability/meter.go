package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/mpiabi/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the resolver, prober and finder.
type Metrics struct {
	probeAttempts    metric.Int64Counter
	resolveTotal     metric.Int64Counter
	resolveDuration  metric.Float64Histogram
	findTotal        metric.Int64Counter
	dispatchWarnings metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	probeAttempts, err := meter.Int64Counter("mpiabi.probe.attempts",
		metric.WithDescription("Library candidates opened by the prober"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mpiabi.probe.attempts counter: %w", err)
	}

	resolveTotal, err := meter.Int64Counter("mpiabi.resolve.total",
		metric.WithDescription("ABI resolutions by source and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mpiabi.resolve.total counter: %w", err)
	}

	resolveDuration, err := meter.Float64Histogram("mpiabi.resolve.duration",
		metric.WithDescription("Duration of ABI resolution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mpiabi.resolve.duration histogram: %w", err)
	}

	findTotal, err := meter.Int64Counter("mpiabi.find.total",
		metric.WithDescription("Finder lookups by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mpiabi.find.total counter: %w", err)
	}

	dispatchWarnings, err := meter.Int64Counter("mpiabi.dispatch.warnings",
		metric.WithDescription("Registered modules declined for lack of a matching variant"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mpiabi.dispatch.warnings counter: %w", err)
	}

	return &Metrics{
		probeAttempts:    probeAttempts,
		resolveTotal:     resolveTotal,
		resolveDuration:  resolveDuration,
		findTotal:        findTotal,
		dispatchWarnings: dispatchWarnings,
	}, nil
}

// RecordProbeAttempt counts one candidate open, tagged ok or failed.
func (m *Metrics) RecordProbeAttempt(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.probeAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordResolve records a finished resolution.
func (m *Metrics) RecordResolve(ctx context.Context, source, abi string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.resolveTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("abi", abi),
		attribute.String("status", status),
	))
	m.resolveDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("source", source),
	))
}

// RecordFind records a finder lookup outcome.
func (m *Metrics) RecordFind(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.findTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDispatchWarning counts a declined registered module.
func (m *Metrics) RecordDispatchWarning(ctx context.Context, module, abi string) {
	if m == nil {
		return
	}
	m.dispatchWarnings.Add(ctx, 1, metric.WithAttributes(
		attribute.String("module", module),
		attribute.String("abi", abi),
	))
}
