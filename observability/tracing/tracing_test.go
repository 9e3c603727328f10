package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testSpan struct {
	tracer *testTracer
}

func (s testSpan) End(error) { s.tracer.ends++ }

type testTracer struct {
	starts int
	ends   int
}

type tracerKey struct{}

func (t *testTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	t.starts++
	return context.WithValue(ctx, tracerKey{}, t), testSpan{tracer: t}
}

func TestWithTracerFanout(t *testing.T) {
	primary := &testTracer{}
	secondary := &testTracer{}
	tracer := WithTracer(primary, nil, secondary)
	ctx, span := tracer.Start(context.Background(), "members.select")
	if got := ctx.Value(tracerKey{}); got != primary {
		t.Fatalf("expected context from primary tracer, got %v", got)
	}
	span.End(nil)
	if primary.starts != 1 || secondary.starts != 1 {
		t.Fatalf("expected both tracers to start once, got %d and %d", primary.starts, secondary.starts)
	}
	if primary.ends != 1 || secondary.ends != 1 {
		t.Fatalf("expected both spans to end once, got %d and %d", primary.ends, secondary.ends)
	}
}

func TestWithTracerDefaults(t *testing.T) {
	if _, ok := WithTracer(nil).(NoopTracer); !ok {
		t.Fatalf("expected noop tracer")
	}
	only := &testTracer{}
	if WithTracer(nil, only) != Tracer(only) {
		t.Fatalf("expected single tracer to be returned unchanged")
	}
}

func TestOTelTracerRecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewOTelTracer(tp, "test")
	_, span := tracer.Start(context.Background(), "orm.members.update",
		String("orm.table", "members"),
		Int64("orm.rows", 3),
	)
	span.End(errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span recorded, got %d", len(spans))
	}
	if spans[0].Name() != "orm.members.update" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status())
	}
	if len(spans[0].Attributes()) != 2 {
		t.Fatalf("expected two attributes, got %v", spans[0].Attributes())
	}
}

func TestNewProviderSamplesAll(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(1, recorder)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := NewOTelTracer(tp, "").Start(context.Background(), "hello")
	span.End(nil)
	if len(recorder.Ended()) != 1 {
		t.Fatalf("expected sampled span to be recorded")
	}
}
