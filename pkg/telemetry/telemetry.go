// Package telemetry wires the runner and scheduler into OpenTelemetry metrics
// and tracing, with a Prometheus exporter backing the meter provider.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "taskgraph-engine"

	metricRunTotal      = "run.executions.total"
	metricRunDuration   = "run.execution.duration"
	metricRunSuccess    = "run.executions.success.total"
	metricRunFailure    = "run.executions.failure.total"
	metricNodeTotal     = "node.executions.total"
	metricNodeDuration  = "node.execution.duration"
	metricNodeSuccess   = "node.executions.success.total"
	metricNodeFailure   = "node.executions.failure.total"
	metricCacheHit      = "cache.hits.total"
	metricCacheMiss     = "cache.misses.total"
)

// Provider manages OpenTelemetry setup and exposes tracers and meters to the runner.
type Provider struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider trace.TracerProvider
	meter          metric.Meter
	tracer         trace.Tracer

	runTotal     metric.Int64Counter
	runDuration  metric.Float64Histogram
	runSuccess   metric.Int64Counter
	runFailure   metric.Int64Counter
	nodeTotal    metric.Int64Counter
	nodeDuration metric.Float64Histogram
	nodeSuccess  metric.Int64Counter
	nodeFailure  metric.Int64Counter
	cacheHit     metric.Int64Counter
	cacheMiss    metric.Int64Counter

	mu sync.RWMutex
}

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableTracing  bool
	EnableMetrics  bool
}

// DefaultConfig returns default telemetry configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    "development",
		EnableTracing:  true,
		EnableMetrics:  true,
	}
}

// NewProvider creates a telemetry provider backed by a Prometheus exporter.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if config.EnableMetrics {
		if err := provider.initMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	if config.EnableTracing {
		provider.initTracing()
	}

	return provider, nil
}

func (p *Provider) initMetrics(res *resource.Resource) error {
	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter(serviceName)

	return p.createMetricInstruments()
}

func (p *Provider) initTracing() {
	// Production deployments configure an OTLP/Jaeger exporter here; the core
	// only needs a tracer, so it rides on whatever global provider is set.
	p.tracerProvider = otel.GetTracerProvider()
	p.tracer = p.tracerProvider.Tracer(serviceName)
}

func (p *Provider) createMetricInstruments() error {
	var err error

	if p.runTotal, err = p.meter.Int64Counter(metricRunTotal, metric.WithDescription("Total number of graph runs")); err != nil {
		return err
	}
	if p.runDuration, err = p.meter.Float64Histogram(metricRunDuration, metric.WithDescription("Run duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return err
	}
	if p.runSuccess, err = p.meter.Int64Counter(metricRunSuccess, metric.WithDescription("Total number of successful runs")); err != nil {
		return err
	}
	if p.runFailure, err = p.meter.Int64Counter(metricRunFailure, metric.WithDescription("Total number of failed runs")); err != nil {
		return err
	}
	if p.nodeTotal, err = p.meter.Int64Counter(metricNodeTotal, metric.WithDescription("Total number of node executions")); err != nil {
		return err
	}
	if p.nodeDuration, err = p.meter.Float64Histogram(metricNodeDuration, metric.WithDescription("Node execution duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return err
	}
	if p.nodeSuccess, err = p.meter.Int64Counter(metricNodeSuccess, metric.WithDescription("Total number of successful node executions")); err != nil {
		return err
	}
	if p.nodeFailure, err = p.meter.Int64Counter(metricNodeFailure, metric.WithDescription("Total number of failed node executions")); err != nil {
		return err
	}
	if p.cacheHit, err = p.meter.Int64Counter(metricCacheHit, metric.WithDescription("Total number of output cache hits")); err != nil {
		return err
	}
	if p.cacheMiss, err = p.meter.Int64Counter(metricCacheMiss, metric.WithDescription("Total number of output cache misses")); err != nil {
		return err
	}

	return nil
}

// Tracer returns the tracer used for per-node and per-run spans.
func (p *Provider) Tracer() trace.Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

// Meter returns the meter for recording custom metrics.
func (p *Provider) Meter() metric.Meter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meter
}

// RecordRun records metrics for one graph run.
func (p *Provider) RecordRun(ctx context.Context, runID string, duration time.Duration, success bool, nodesExecuted int) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.Int("nodes.executed", nodesExecuted),
	}
	p.runTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	p.runDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if success {
		p.runSuccess.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		p.runFailure.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordNode records metrics for one node execution.
func (p *Provider) RecordNode(ctx context.Context, nodeID, nodeType string, duration time.Duration, success bool) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("node.id", nodeID),
		attribute.String("node.type", nodeType),
	}
	p.nodeTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	p.nodeDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if success {
		p.nodeSuccess.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		p.nodeFailure.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCacheLookup records whether an output cache lookup hit or missed.
func (p *Provider) RecordCacheLookup(ctx context.Context, nodeType string, hit bool) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("node.type", nodeType)}
	if hit {
		p.cacheHit.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		p.cacheMiss.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Shutdown gracefully shuts down the telemetry provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
	}
	return nil
}
