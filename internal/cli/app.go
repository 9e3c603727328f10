package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/deicod/querystudy/internal/config"
	"github.com/deicod/querystudy/internal/logger"
	"github.com/deicod/querystudy/internal/server"
	"github.com/deicod/querystudy/observability/metrics"
	"github.com/deicod/querystudy/observability/tracing"
	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/pg"
	"github.com/deicod/querystudy/orm/runtime"
)

// app holds the process-wide collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        *pg.DB
	collector *metrics.PrometheusCollector
	provider  *sdktrace.TracerProvider
}

var (
	loadConfig = config.Load
	connectDB  = func(ctx context.Context, url string, opts ...pg.Option) (*pg.DB, error) {
		return pg.Connect(ctx, url, opts...)
	}
)

func openApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, wrapError("load configuration", err,
			"Set QUERYSTUDY_DATABASE__URL or pass --config with a database.url entry.", 2)
	}
	log, err := logger.New(cfg.Log, cfg.Env, logOut)
	if err != nil {
		return nil, wrapError("configure logger", err, "Use one of trace, debug, info, warn or error for log.level.", 2)
	}
	a := &app{cfg: cfg, log: log}

	poolOpts := []pg.Option{pg.WithPoolConfig(pg.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})}
	if level, ok := logger.SQLLevel(cfg.Log); ok {
		poolOpts = append(poolOpts, pg.WithQueryLog(log, level))
	}
	// Spans come from the pgx tracer alone, which also covers migrations. The
	// ORM observer keeps logging and metrics.
	if cfg.Tracing.Enabled {
		a.provider = tracing.NewProvider(cfg.Tracing.SampleRatio)
		poolOpts = append(poolOpts, pg.WithTracer(tracing.NewOTelTracer(a.provider, "")))
	}

	db, err := connectDB(ctx, cfg.Database.URL, poolOpts...)
	if err != nil {
		a.close(ctx)
		return nil, wrapError("connect database", err, "Verify the database is reachable and credentials are correct.", 1)
	}
	a.db = db

	observer := runtime.QueryObserver{
		Logger:     logger.QueryLogger(log),
		Correlator: runtime.CorrelationProviderFunc(server.RequestIDFromContext),
	}
	if cfg.Metrics.Enabled {
		a.collector = metrics.NewPrometheusCollector(cfg.Metrics.Namespace, nil)
		observer.Collector = a.collector
	}
	db.UseObserver(observer)
	return a, nil
}

func (a *app) clientOptions() []gen.ClientOption {
	if a.cfg.Database.IdentityMapSize > 0 {
		return []gen.ClientOption{gen.WithIdentityMapSize(a.cfg.Database.IdentityMapSize)}
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.db != nil {
		a.db.Close()
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			a.log.Warn().Err(err).Msg("shutdown tracer provider")
		}
	}
}
