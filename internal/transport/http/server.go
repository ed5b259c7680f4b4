// Package http provides the HTTP server of the travel assistant.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/service"
	v1 "github.com/xiaot623/gogo/navigator/internal/transport/http/v1"
	"github.com/xiaot623/gogo/navigator/internal/transport/ws"
)

// NewServer creates the echo server with the REST API and, when wsServer is
// not nil, the /ws chat endpoint.
func NewServer(svc *service.Service, wsServer *ws.Server, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, logger).RegisterRoutes(e)
	if wsServer != nil {
		e.GET("/ws", wsServer.HandleWebSocket)
	}
	return e
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
