package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/deicod/querystudy/observability/metrics"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type requestIDCtxKey struct{}

// RequestIDFromContext returns the id stored by the RequestID middleware. It
// is the correlation provider for ORM query observations.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// RequestID reuses the caller's X-Request-ID or generates one, echoes it on
// the response and stores it on both the echo and the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(RequestIDHeader, id)
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), requestIDCtxKey{}, id)))
			return next(c)
		}
	}
}

// GetRequestID returns the request id of c.
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// RequestLogger logs one line per request and stores a request-scoped logger
// in the request context for zerolog.Ctx.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogMethod:  true,
		LogURI:     true,
		LogLatency: true,
		LogError:   true,
		BeforeNextFunc: func(c echo.Context) {
			scoped := log.With().Str("request_id", GetRequestID(c)).Logger()
			req := c.Request()
			c.SetRequest(req.WithContext(scoped.WithContext(req.Context())))
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("request_id", GetRequestID(c)).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// Recover turns handler panics into 500 responses.
func Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

// Metrics records route, status and latency of every request. Handler
// errors are rendered here so the recorded status is the one sent, then
// passed on for the request logger.
func Metrics(collector metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			collector.RecordRequest(c.Path(), c.Response().Status, time.Since(start))
			return err
		}
	}
}
