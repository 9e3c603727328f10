// Package server exposes the study HTTP API over echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deicod/querystudy/internal/config"
	"github.com/deicod/querystudy/observability/metrics"
	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/runtime"
	"github.com/deicod/querystudy/orm/runtime/validation"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	// Executor backs the per-request entity clients, usually a *pg.DB.
	Executor runtime.Executor
	// Health is pinged by /healthz. Nil reports healthy.
	Health Pinger
	// Metrics enables /metrics and request instrumentation when set.
	Metrics *metrics.PrometheusCollector
	Logger  zerolog.Logger
	// ClientOptions configure every per-request gen.Client.
	ClientOptions []gen.ClientOption
}

// Server owns the echo router and the underlying http.Server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        config.ServerConfig
	deps       Deps
}

// New builds the router with every route and middleware attached.
func New(cfg config.ServerConfig, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	s := &Server{echo: e, cfg: cfg, deps: deps}

	var collector metrics.Collector = metrics.NoopCollector{}
	if deps.Metrics != nil {
		collector = deps.Metrics
	}
	e.Use(Recover(), RequestID(), RequestLogger(deps.Logger), Metrics(collector))

	h := &handlers{deps: deps}
	e.GET("/hello", h.hello)
	e.GET("/healthz", h.health)
	e.GET("/members", h.searchMembers)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.deps.Logger.Info().Str("addr", s.cfg.Addr).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &requestValidator{validate: v}
}

func (v *requestValidator) Validate(i any) error {
	return validation.Check(v.validate, i)
}

type errorResponse struct {
	Message   string                  `json:"message"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
	RequestID string                  `json:"requestId,omitempty"`
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		resp := errorResponse{Message: http.StatusText(status), RequestID: GetRequestID(c)}

		var herr *echo.HTTPError
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			status = http.StatusBadRequest
			resp.Message = "invalid query parameters"
			resp.Fields = verrs
		case errors.As(err, &herr):
			status = herr.Code
			resp.Message = fmt.Sprint(herr.Message)
		default:
			log.Error().Err(err).Str("request_id", resp.RequestID).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}
