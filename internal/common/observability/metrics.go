package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"portfolio-workers/internal/common/logger"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	opDuration     otelmetric.Float64Histogram
}

type options struct {
	registerer     promclient.Registerer
	spanProcessors []sdktrace.SpanProcessor
	logger         logger.Logger
}

type Option func(*options)

// WithRegisterer sends OTel metrics to r instead of the default registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSpanProcessor attaches a processor, e.g. a tracetest.SpanRecorder.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, p) }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(serviceName string, opts ...Option) *Observability {
	o := options{registerer: promclient.DefaultRegisterer, logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}
	for _, p := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(p))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tracerProvider)

	obs := &Observability{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(o.registerer))
	if err != nil {
		o.logger.Warn("prometheus exporter unavailable, otel metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		obs.initInstruments(metricnoop.NewMeterProvider().Meter(serviceName))
		return obs
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	obs.meterProvider = provider
	obs.initInstruments(provider.Meter(serviceName))
	return obs
}

// NewNoop records nothing. It is the default for services built without one.
func NewNoop() *Observability {
	obs := &Observability{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
	obs.initInstruments(metricnoop.NewMeterProvider().Meter("noop"))
	return obs
}

func (o *Observability) initInstruments(meter otelmetric.Meter) {
	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.opDuration, _ = meter.Float64Histogram(
		"workflow.operation.duration",
		otelmetric.WithDescription("Workflow operation duration including transaction retries"),
		otelmetric.WithUnit("ms"),
	)
}

// StartSpan opens a span for a workflow operation. The returned func ends it,
// marking the span failed when err is non-nil, and records the duration.
func (o *Observability) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	if o == nil || o.tracer == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if o.opDuration != nil {
			o.opDuration.Record(ctx, float64(time.Since(start).Milliseconds()), otelmetric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("outcome", outcome),
			))
		}
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o != nil && o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
