package emit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into an OpenTelemetry span named after
// event.Msg. Spans are ended immediately: events are points in time.
//
// Attributes:
//   - mbt.session_id, mbt.context, mbt.step, mbt.element_id
//   - mbt.<key> for every Meta entry
//
// Events with an "error" meta entry get an error status and a recorded
// error.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	m, _ := machine.New(exec, contexts, machine.WithEmitter(emit.NewOTelEmitter(otel.Tracer("mbt"))))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter using tracer, or the global provider's
// "mbt" tracer when tracer is nil.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	if tracer == nil {
		tracer = otel.Tracer("mbt")
	}
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	o.emit(context.Background(), event)
}

// EmitBatch emits events as spans under ctx, so they join an enclosing trace.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.emit(ctx, event)
	}
	return nil
}

// Flush forces export of buffered spans when the global tracer provider
// supports it.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) emit(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("mbt.session_id", event.SessionID),
		attribute.String("mbt.context", event.Context),
		attribute.Int("mbt.step", event.Step),
		attribute.String("mbt.element_id", event.ElementID),
	)
	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute("mbt."+key, value))
	}

	if msg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, msg)
		span.RecordError(errors.New(msg))
	}
}

func metaAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Milliseconds())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
