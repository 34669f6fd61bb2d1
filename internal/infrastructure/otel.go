package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"nwbconv/internal/config"
)

const (
	ServiceName    = "nwbconv"
	ServiceVersion = "1.0.0"
	MeterName      = "nwbconv"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	MetricsFile    string
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Runtime        *RuntimeMetrics
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
// Tracing is off by default so that stdout stays reserved for
// conversion output; --trace turns it on.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// NewOTelConfig builds an OpenTelemetry configuration from the
// application telemetry settings. An empty metrics file path disables
// the metric pipeline entirely.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	oc := DefaultOTelConfig()
	oc.EnableTracing = cfg.EnableTracing
	oc.MetricsFile = cfg.MetricsFile
	oc.EnableMetrics = cfg.MetricsFile != ""
	return oc
}

// InitializeOTel initializes OpenTelemetry tracing and metrics
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	if providers.Meter != nil {
		rm, err := RegisterRuntimeMetrics(providers.Meter)
		if err != nil {
			logger.WarnContext(ctx, "runtime metric registration failed",
				slog.String("error", err.Error()))
		}
		providers.Runtime = rm
	}

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics backed by a
// dedicated Prometheus registry. The registry is kept on the providers
// so WriteMetricsSnapshot can gather it after a run.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.Registry = registry

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreateConversionMetrics creates application-specific metrics
func CreateConversionMetrics(meter metric.Meter) (*ConversionMetrics, error) {
	// Run metrics
	runsTotal, err := meter.Int64Counter(
		"conversion_runs_total",
		metric.WithDescription("Total number of conversion runs"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"conversion_run_duration_seconds",
		metric.WithDescription("Conversion run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runErrors, err := meter.Int64Counter(
		"conversion_run_errors_total",
		metric.WithDescription("Total number of failed conversion runs"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"conversion_active_runs",
		metric.WithDescription("Number of conversion runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	// Channel metrics
	channelsClassified, err := meter.Int64Counter(
		"conversion_channels_classified_total",
		metric.WithDescription("Total number of channels classified into series"),
	)
	if err != nil {
		return nil, err
	}

	channelsSkipped, err := meter.Int64Counter(
		"conversion_channels_skipped_total",
		metric.WithDescription("Total number of channels skipped during classification"),
	)
	if err != nil {
		return nil, err
	}

	samplesProcessed, err := meter.Int64Counter(
		"conversion_samples_total",
		metric.WithDescription("Total number of data samples carried into series"),
	)
	if err != nil {
		return nil, err
	}

	// Export metrics
	exportsTotal, err := meter.Int64Counter(
		"conversion_exports_total",
		metric.WithDescription("Total number of container export attempts"),
	)
	if err != nil {
		return nil, err
	}

	exportFailures, err := meter.Int64Counter(
		"conversion_export_failures_total",
		metric.WithDescription("Total number of failed container exports"),
	)
	if err != nil {
		return nil, err
	}

	exportBytes, err := meter.Int64Counter(
		"conversion_export_bytes_total",
		metric.WithDescription("Total bytes written by container exports"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &ConversionMetrics{
		RunsTotal:   runsTotal,
		RunDuration: runDuration,
		RunErrors:   runErrors,
		ActiveRuns:  activeRuns,

		ChannelsClassified: channelsClassified,
		ChannelsSkipped:    channelsSkipped,
		SamplesProcessed:   samplesProcessed,

		ExportsTotal:   exportsTotal,
		ExportFailures: exportFailures,
		ExportBytes:    exportBytes,
	}, nil
}

// ConversionMetrics holds all application-specific metrics
type ConversionMetrics struct {
	// Run metrics
	RunsTotal   metric.Int64Counter
	RunDuration metric.Float64Histogram
	RunErrors   metric.Int64Counter
	ActiveRuns  metric.Int64UpDownCounter

	// Channel metrics
	ChannelsClassified metric.Int64Counter
	ChannelsSkipped    metric.Int64Counter
	SamplesProcessed   metric.Int64Counter

	// Export metrics
	ExportsTotal   metric.Int64Counter
	ExportFailures metric.Int64Counter
	ExportBytes    metric.Int64Counter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if err := p.Runtime.Unregister(); err != nil {
		errs = append(errs, fmt.Errorf("runtime metrics unregister: %w", err))
	}

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// WriteMetricsSnapshot gathers the Prometheus registry and writes it
// to path in text exposition format. Callers invoke it after a run so
// batch jobs leave a scrapeable file behind without running a server.
func (p *OTelProviders) WriteMetricsSnapshot(path string) error {
	if p.Registry == nil || path == "" {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory %s: %w", dir, err)
		}
	}

	if err := prometheus.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics snapshot: %w", err)
	}
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordRunMetrics records metrics for one conversion run
func RecordRunMetrics(ctx context.Context, metrics *ConversionMetrics, source string, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", filepath.Base(source)),
	}

	metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		metrics.RunErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("conversion.metrics_recorded",
			trace.WithAttributes(
				attribute.String("source", filepath.Base(source)),
				attribute.Bool("success", success),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordChannelMetrics records metrics for one classified channel
func RecordChannelMetrics(ctx context.Context, metrics *ConversionMetrics, path string, mode string, samples int64) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("path", path),
		attribute.String("mode", mode),
	}

	metrics.ChannelsClassified.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.SamplesProcessed.Add(ctx, samples, metric.WithAttributes(attrs...))
}

// RecordChannelSkip records a channel that classification passed over
func RecordChannelSkip(ctx context.Context, metrics *ConversionMetrics) {
	if metrics == nil {
		return
	}

	metrics.ChannelsSkipped.Add(ctx, 1)
}

// RecordActiveRunChange records changes in the in-progress run count
func RecordActiveRunChange(ctx context.Context, metrics *ConversionMetrics, delta int64) {
	if metrics == nil {
		return
	}

	metrics.ActiveRuns.Add(ctx, delta)
}

// RecordExportMetrics records the outcome of a container export
func RecordExportMetrics(ctx context.Context, metrics *ConversionMetrics, bytes int64, err error) {
	if metrics == nil {
		return
	}

	metrics.ExportsTotal.Add(ctx, 1)
	if err != nil {
		metrics.ExportFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
		return
	}
	if bytes > 0 {
		metrics.ExportBytes.Add(ctx, bytes)
	}
}
