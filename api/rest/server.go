// Package rest exposes the engine's control surface: a liveness probe and
// read-only scheduling/timing statistics.
package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"pixelforge/generation-engine/internal/metrics"
	"pixelforge/generation-engine/internal/scheduler"
	"pixelforge/generation-engine/pkg/logger"
)

// StatsSource provides scheduling statistics.
type StatsSource interface {
	Snapshot() scheduler.Stats
}

// TimingsSource provides per-topic timing summaries.
type TimingsSource interface {
	Snapshot() map[string]metrics.TopicSnapshot
}

// HealthProbe checks the remote engine, best effort.
type HealthProbe func(ctx context.Context) bool

// Config holds the control-surface settings.
type Config struct {
	Address string `yaml:"address"`
}

// Server is the control-surface HTTP server.
type Server struct {
	app     *fiber.App
	config  *Config
	stats   StatsSource
	timings TimingsSource
	probe   HealthProbe
}

// NewServer builds the server and its routes.
func NewServer(config *Config, stats StatsSource, timings TimingsSource, probe HealthProbe) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(fiberrecover.New())

	s := &Server{
		app:     app,
		config:  config,
		stats:   stats,
		timings: timings,
		probe:   probe,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)

	v1 := s.app.Group("/api/v1")
	v1.Get("/stats", s.handleStats)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	engineUp := false
	if s.probe != nil {
		engineUp = s.probe(c.Context())
	}
	status := "ok"
	if !engineUp {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status": status,
		"engine": engineUp,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := fiber.Map{}
	if s.stats != nil {
		resp["scheduler"] = s.stats.Snapshot()
	}
	if s.timings != nil {
		resp["timings"] = s.timings.Snapshot()
	}
	return c.JSON(resp)
}

// Start begins listening; it blocks until the listener stops.
func (s *Server) Start() error {
	logger.Info("control surface listening on %s", s.config.Address)
	return s.app.Listen(s.config.Address)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
