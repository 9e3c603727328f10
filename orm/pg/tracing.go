package pg

import (
	"context"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/deicod/querystudy/observability/tracing"
)

// WithTracer opens a span for every statement pgx sends.
func WithTracer(tracer tracing.Tracer) Option {
	return func(cfg *pgxpool.Config) {
		if tracer == nil {
			return
		}
		addTracer(cfg, &pgxTracer{tracer: tracer})
	}
}

// WithQueryLog logs every statement through logger at the given zerolog level.
func WithQueryLog(logger zerolog.Logger, level zerolog.Level) Option {
	return func(cfg *pgxpool.Config) {
		addTracer(cfg, &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(logger),
			LogLevel: TraceLogLevel(level),
		})
	}
}

// TraceLogLevel maps a zerolog level onto the pgx tracelog scale.
func TraceLogLevel(level zerolog.Level) tracelog.LogLevel {
	switch level {
	case zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case zerolog.InfoLevel:
		return tracelog.LogLevelInfo
	case zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return tracelog.LogLevelError
	default:
		return tracelog.LogLevelNone
	}
}

func addTracer(cfg *pgxpool.Config, tracer pgx.QueryTracer) {
	switch existing := cfg.ConnConfig.Tracer.(type) {
	case nil:
		cfg.ConnConfig.Tracer = tracer
	case multiTracer:
		cfg.ConnConfig.Tracer = append(existing, tracer)
	default:
		cfg.ConnConfig.Tracer = multiTracer{existing, tracer}
	}
}

// multiTracer fans pgx query hooks out to several tracers. pgx accepts only one.
type multiTracer []pgx.QueryTracer

func (mt multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, t := range mt {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (mt multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, t := range mt {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

type pgxTracer struct {
	tracer tracing.Tracer
}

type spanCtxKey struct{}

func (t *pgxTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := t.tracer.Start(ctx, "pgx.query",
		tracing.String("db.statement", data.SQL),
		tracing.Int("db.arg_count", len(data.Args)),
	)
	return context.WithValue(ctx, spanCtxKey{}, span)
}

func (t *pgxTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if span, ok := ctx.Value(spanCtxKey{}).(tracing.Span); ok && span != nil {
		span.End(data.Err)
	}
}
