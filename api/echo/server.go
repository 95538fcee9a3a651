package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/mimoto-id/mimoto/config"
)

// NewServer builds the HTTP server hosting the interaction endpoints, with
// recovery, request logging, tracing and session resolution wired in.
func NewServer(cfg *config.ServerConfig, api *InteractionAPI, manager *CookieSessionManager, logger zerolog.Logger) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.OtelServiceName))
	e.Use(requestLogger(logger))
	e.Use(SessionMiddleware(manager))

	api.RegisterRoutes(e)
	e.GET("/health", func(ec echo.Context) error {
		return ec.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			start := time.Now()
			err := next(ec)

			event := logger.Info()
			if err != nil {
				event = logger.Error().Err(err)
			}
			event.Ctx(ec.Request().Context()).
				Str("method", ec.Request().Method).
				Str("path", ec.Request().URL.Path).
				Int("status", ec.Response().Status).
				Dur("latency", time.Since(start)).
				Str("ip", ec.RealIP()).
				Str("user_agent", ec.Request().UserAgent()).
				Msg("http request")
			return err
		}
	}
}
