package otel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/arborist/weave/frame"
)

const instrumentationName = "github.com/arborist/weave"

// Observer is a scope.Observer that opens one span per Frame (from
// FrameStarted to FrameFinished) and records scope/frame counts on an
// OpenTelemetry meter. It reads the global TracerProvider/MeterProvider,
// so callers configure OTEL exporters the usual way
// (otel.SetTracerProvider/SetMeterProvider) before constructing one.
type Observer struct {
	tracer trace.Tracer

	scopesCreated metric.Int64Counter
	framesByKind  metric.Int64Counter

	mu    sync.Mutex
	spans map[frame.ID]trace.Span
}

// New constructs an Observer against the global OTEL providers.
func New() *Observer {
	meter := otel.Meter(instrumentationName)
	scopesCreated, _ := meter.Int64Counter("weave.scopes.created")
	framesByKind, _ := meter.Int64Counter("weave.frames.finished")
	return &Observer{
		tracer:        otel.Tracer(instrumentationName),
		scopesCreated: scopesCreated,
		framesByKind:  framesByKind,
		spans:         make(map[frame.ID]trace.Span),
	}
}

// ScopeCreated implements scope.Observer.
func (o *Observer) ScopeCreated(ctx context.Context, id uuid.UUID) {
	o.scopesCreated.Add(ctx, 1)
}

// ScopeClosing implements scope.Observer.
func (o *Observer) ScopeClosing(context.Context, uuid.UUID, error) {}

// ScopeClosed implements scope.Observer.
func (o *Observer) ScopeClosed(context.Context, uuid.UUID) {}

// FrameStarted implements scope.Observer, opening a span for the Frame.
func (o *Observer) FrameStarted(ctx context.Context, id frame.ID) {
	_, span := o.tracer.Start(ctx, "frame", trace.WithAttributes(
		attribute.String("frame.id", id.String()),
	))
	o.mu.Lock()
	o.spans[id] = span
	o.mu.Unlock()
}

// FrameFinished implements scope.Observer, closing the Frame's span with
// a status derived from kind/err and recording the outcome on the meter.
func (o *Observer) FrameFinished(ctx context.Context, id frame.ID, kind frame.Kind, err error) {
	o.mu.Lock()
	span, ok := o.spans[id]
	delete(o.spans, id)
	o.mu.Unlock()

	o.framesByKind.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	if !ok {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
