package observability

import (
	"context"
	"errors"
	"fmt"

	"folio/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts every folio span. It is a no-op tracer until InitTracing
// installs a provider.
var Tracer trace.Tracer = otel.Tracer("folio-api")

type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // otlp, anything else prints to stdout
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs the global provider and W3C propagators. The returned
// func flushes and stops the exporter.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	Tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == "otlp" {
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	return stdouttrace.New()
}

// Span is a service-level operation span. Client mistakes (validation,
// missing items, permissions) are tagged with their code but leave the span
// status OK; only transient and internal failures mark it as an error.
type Span struct {
	span trace.Span
}

// NewSpan starts a span named after a service operation.
func NewSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name, opts...)
	return &Span{span: span}, ctx
}

// StartContentSpan is NewSpan for an operation on one essay or review.
// id and actorID are left off when zero.
func StartContentSpan(ctx context.Context, name string, kind models.ContentKind, id, actorID uint) (*Span, context.Context) {
	attrs := []attribute.KeyValue{attribute.String("content.kind", string(kind))}
	if id != 0 {
		attrs = append(attrs, attribute.Int64("content.id", int64(id)))
	}
	if actorID != 0 {
		attrs = append(attrs, attribute.Int64("user.id", int64(actorID)))
	}
	return NewSpan(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Span) AddAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// SetError classifies err on the span; nil is ignored.
func (s *Span) SetError(err error) {
	if err == nil {
		return
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		s.span.SetAttributes(attribute.String("error.code", appErr.Code))
		if models.StatusFor(err) < 500 {
			return
		}
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Span) End() {
	s.span.End()
}

// Finish is SetError followed by End, for use with a named error return.
func (s *Span) Finish(err error) {
	s.SetError(err)
	s.End()
}
