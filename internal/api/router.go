package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/openmeet/openmeet-api/internal/api/docs"
	"github.com/openmeet/openmeet-api/internal/api/handler"
	"github.com/openmeet/openmeet-api/internal/api/middleware"
	"github.com/openmeet/openmeet-api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Users     ports.UserRepository
	Events    ports.EventRepository
	Repairs   handler.RepairQueue
	Readiness map[string]handler.Pinger
	JWTSecret string
	Log       zerolog.Logger
	// Registry receives the HTTP metrics. Nil means the default registry,
	// which also carries the pool and repository metrics.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsConfig(d.Registry)))

	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Users ---
	users := handler.NewUserHandler(d.Users, d.Repairs)
	e.POST("/register", users.Register)
	e.POST("/login", users.Login)
	e.GET("/users", users.List, authMiddleware)
	e.GET("/users/:id", users.Get, authMiddleware)
	e.DELETE("/users/:id", users.Delete, authMiddleware)
	e.GET("/whoami/:email", users.WhoAmI, authMiddleware)

	// --- Events ---
	events := handler.NewEventHandler(d.Events)
	e.POST("/events", events.Create)
	e.GET("/groups/:group_id/events", events.ListByGroup)
	e.GET("/groups/:group_id/events/:start_time/:event_id", events.Get)
	e.DELETE("/groups/:group_id/events/:start_time/:event_id", events.Delete, authMiddleware)

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)                     // liveness  – is the process alive?
	e.GET("/health/ready", handler.NewReadinessHandler(d.Readiness).Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(echoSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))

	return e
}

func metricsConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Namespace: "openmeet", Subsystem: "http"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
