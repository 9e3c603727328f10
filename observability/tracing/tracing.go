package tracing

import (
	"context"
	"time"
)

// Attribute represents a key/value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

// Span represents an in-flight tracing span.
type Span interface {
	End(err error)
}

// Tracer starts spans for tracing operations.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// NoopTracer discards all tracing events.
type NoopTracer struct{}

// Start implements Tracer.
func (NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// fanoutTracer starts the same span on every tracer. Only the first tracer
// contributes to the returned context.
type fanoutTracer []Tracer

func (f fanoutTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	out := ctx
	spans := make(multiSpan, 0, len(f))
	for i, tracer := range f {
		next, span := tracer.Start(ctx, name, attrs...)
		if span == nil {
			span = noopSpan{}
		}
		if i == 0 {
			out = next
		}
		spans = append(spans, span)
	}
	return out, spans
}

type multiSpan []Span

func (ms multiSpan) End(err error) {
	for _, span := range ms {
		span.End(err)
	}
}

// WithTracer combines the non-nil tracers into one.
func WithTracer(primary Tracer, others ...Tracer) Tracer {
	tracers := make(fanoutTracer, 0, 1+len(others))
	if primary != nil {
		tracers = append(tracers, primary)
	}
	for _, t := range others {
		if t != nil {
			tracers = append(tracers, t)
		}
	}
	switch len(tracers) {
	case 0:
		return NoopTracer{}
	case 1:
		return tracers[0]
	default:
		return tracers
	}
}

// String attribute helper.
func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

// Int attribute helper.
func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

// Int64 attribute helper.
func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

// Bool attribute helper.
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

// Duration attribute helper, recorded in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}
