// Package http provides the assistdesk HTTP server.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/logger"
	"github.com/xiaot623/assistdesk/internal/metrics"
	"github.com/xiaot623/assistdesk/internal/service"
	v1 "github.com/xiaot623/assistdesk/internal/transport/http/v1"
)

// Option configures NewServer.
type Option func(*serverOptions)

type serverOptions struct {
	allowedOrigins []string
}

// WithAllowedOrigins lets the listed browser origins call the API in addition
// to loopback origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *serverOptions) {
		o.allowedOrigins = append(o.allowedOrigins, origins...)
	}
}

// NewServer creates the dashboard API server. m may be nil, in which case
// /metrics is not served.
func NewServer(svc *service.Service, h *hub.Hub, m *metrics.Metrics, log *logger.Logger, opts ...Option) *echo.Echo {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	origins := v1.NewOriginPolicy(o.allowedOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: origins.CORSOrigin,
		AllowHeaders:    []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, v1.HeaderSessionID},
		ExposeHeaders:   []string{v1.HeaderSessionID},
	}))
	e.Use(origins.Middleware())

	// Handlers
	v1Handler := v1.NewHandler(svc, h, log)
	v1Handler.SetOriginPolicy(origins)
	v1Handler.RegisterRoutes(e)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": v1.Version,
		})
	})

	return e
}
