// Package loggingmw puts a request-scoped slog logger into the request
// context and writes one access line when the handler returns.
package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

type Config struct {
	Logger *slog.Logger
	// Quiet routes log successful requests at debug level (probes, scrapes).
	Quiet []string
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return WithConfig(Config{Logger: base})
}

func WithConfig(cfg Config) echo.MiddlewareFunc {
	quiet := make(map[string]bool, len(cfg.Quiet))
	for _, p := range cfg.Quiet {
		quiet[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, res := c.Request(), c.Response()
			ctx := req.Context()

			l := cfg.Logger.With(
				"method", req.Method,
				"route", c.Path(),
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
				res.Header().Set(echo.HeaderXRequestID, rid)
			}
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				l = l.With("trace_id", sc.TraceID().String())
			}
			c.SetRequest(req.WithContext(logging.IntoContext(ctx, l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// render now so the access line carries the final status
				c.Echo().HTTPErrorHandler(err, c)
			}

			attrs := []any{
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", res.Size,
			}
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				attrs = append(attrs, "user_id", uid)
			}

			level := slog.LevelInfo
			switch {
			case res.Status >= 500:
				level = slog.LevelError
				if err != nil {
					attrs = append(attrs, "error", err.Error())
				}
			case res.Status >= 400:
				level = slog.LevelWarn
			case quiet[c.Path()]:
				level = slog.LevelDebug
			}
			l.Log(ctx, level, "http_request", attrs...)
			return nil
		}
	}
}

// requestID prefers the caller's header over one generated by echo's RequestID middleware.
func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
