package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/parleylabs/parley/pkg/llm/provider"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "parley-api"

// Version is reported by the health endpoint. Overridden at build time.
var Version = "dev"

// Server is the API server that answers prompt queries via an LLM provider.
type Server struct {
	config   Config
	provider provider.Provider
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The provider is injected to allow sharing with other components
// and swapping backends in tests.
func NewServer(config Config, prov provider.Provider, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Browser clients (and the chat frontend) may live on any origin.
	app.Use(cors.New())

	s := &Server{
		config:   config,
		provider: prov,
		logger:   logger,
		app:      app,
	}

	app.Get("/health", s.handleHealth)
	app.Post("/query", s.handleQuery)
	app.Post("/query/stream", s.handleQueryStream)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"provider", s.provider.Name(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
