package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/thamco/customer-identity/internal/api/handler"
	"github.com/thamco/customer-identity/internal/api/middleware"
	"github.com/thamco/customer-identity/internal/core/ports"
	"github.com/thamco/customer-identity/internal/infrastructure/http/handlers"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Users     ports.UserRepository
	Tokens    ports.TokenService
	Checks    map[string]handlers.Checker
	JWTSecret string
	Issuer    string
	Log       zerolog.Logger
	// Registry receives the HTTP metrics. The default registry is used when nil.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "identity",
		Registerer: registerer,
		Skipper:    skipProbes,
	}))

	// --- Dependencies ---
	userHandler := handler.NewUserHandler(deps.Users)
	tokenHandler := handler.NewTokenHandler(deps.Tokens)
	auth := middleware.Auth(deps.JWTSecret, deps.Issuer)
	webOnly := middleware.Channels(middleware.CustomerWebApp)
	webOrStaff := middleware.Channels(middleware.CustomerWebApp, middleware.StaffAccountAPI)

	// --- Token endpoint ---
	e.POST("/connect/token", tokenHandler.Issue)

	// --- User routes ---
	users := e.Group("/users", auth)
	users.POST("", userHandler.Create, webOnly)
	users.PUT("/:id", userHandler.Update, webOrStaff)
	users.DELETE("/:id", userHandler.Delete, webOrStaff)
	users.GET("/:id", userHandler.Get, webOrStaff)
	users.GET("/:id/roles", userHandler.Roles, webOrStaff)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper:      skipProbes,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
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

func skipProbes(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
