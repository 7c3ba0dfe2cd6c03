package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dagbolade/blind-auditor/internal/audit"
	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/metrics"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/tools"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	echo   *echo.Echo
	config Config
	hub    *Hub
}

type Config struct {
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// Deps are the components served over HTTP. Trail and Metrics may be nil.
type Deps struct {
	Tools      *tools.Handler
	Controller *controller.Controller
	Rules      rules.Manager
	Trail      audit.Store
	Metrics    *metrics.Recorder
}

func New(cfg Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if deps.Trail == nil {
		deps.Trail = audit.NopStore{}
	}

	s := &Server{
		echo:   e,
		config: cfg,
		hub:    NewHub(deps.Controller),
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Info().Int("port", s.config.Port).Msg("starting HTTP server")

	s.echo.Server.ReadTimeout = time.Duration(s.config.ReadTimeout) * time.Second
	s.echo.Server.WriteTimeout = time.Duration(s.config.WriteTimeout) * time.Second

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	s.hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())
}

func (s *Server) setupRoutes(deps Deps) {
	stateHandler := NewStateHandler(deps.Controller, deps.Rules)
	auditHandler := NewAuditHandler(deps.Trail)
	wsHandler := NewWSHandler(s.hub)

	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/tool/call", deps.Tools.HandleToolCall)
	s.echo.GET("/session", stateHandler.GetSession)
	s.echo.GET("/rules", stateHandler.GetRules)
	s.echo.GET("/audit", auditHandler.GetAuditLog)
	s.echo.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	s.echo.GET("/ws", wsHandler.HandleWebSocket)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
