package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MeterProvider wraps the SDK meter provider with lifecycle management.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates the OTLP gRPC meter provider and installs it
// globally. A disabled config keeps the global no-op meter.
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		return mp, nil
	}

	interval := cfg.MetricsInterval
	if interval == 0 {
		interval = 60 * time.Second
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)
	return mp, nil
}

// Meter returns a named meter.
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp == nil || mp.provider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown flushes pending metrics.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// ReportMetrics records platform requests and run outcomes.
type ReportMetrics struct {
	requests    metric.Int64Counter
	retries     metric.Int64Counter
	runs        metric.Int64Counter
	rows        metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewReportMetrics registers the report instruments on meter.
func NewReportMetrics(meter metric.Meter) (*ReportMetrics, error) {
	requests, err := meter.Int64Counter("salesreport.platform.requests",
		metric.WithDescription("Requests sent to the commerce platform"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}
	retries, err := meter.Int64Counter("salesreport.platform.retries",
		metric.WithDescription("Extra attempts spent on transient failures"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create retries counter: %w", err)
	}
	runs, err := meter.Int64Counter("salesreport.runs",
		metric.WithDescription("Report runs by outcome"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	rows, err := meter.Int64Counter("salesreport.rows",
		metric.WithDescription("Report rows produced"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}
	runDuration, err := meter.Float64Histogram("salesreport.run.duration",
		metric.WithDescription("Wall time of a report run"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	return &ReportMetrics{
		requests:    requests,
		retries:     retries,
		runs:        runs,
		rows:        rows,
		runDuration: runDuration,
	}, nil
}

// ObserveRequest counts one platform request and its retries.
func (m *ReportMetrics) ObserveRequest(ctx context.Context, method string, statusCode, attempts int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.status_code", strconv.Itoa(statusCode)),
		attribute.Bool("error", err != nil),
	)
	m.requests.Add(ctx, 1, attrs)
	if attempts > 1 {
		m.retries.Add(ctx, int64(attempts-1), attrs)
	}
}

// ObserveRun records the outcome of one report run.
func (m *ReportMetrics) ObserveRun(ctx context.Context, outcome string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.rows.Add(ctx, int64(rows), attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}
