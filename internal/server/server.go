// Package server exposes the schema engine and CRUD executor over HTTP.
// Responses use {"data": ...} on success and {"error": {"code", "message"}}
// on failure.
package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/formbase/formbase/internal/auth"
	"github.com/formbase/formbase/internal/catalog"
	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/crud"
	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/schema"
)

// Server wires the HTTP surface to the engine and executor.
type Server struct {
	app             *fiber.App
	drv             database.Driver
	engine          *schema.Engine
	crud            *crud.Service
	cat             *catalog.Catalog
	auth            *auth.Service
	log             *slog.Logger
	shutdownTimeout time.Duration
}

// New creates the server and registers all routes.
func New(cfg config.ServerConfig, drv database.Driver, engine *schema.Engine, crudSvc *crud.Service, cat *catalog.Catalog, authSvc *auth.Service, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
	})

	s := &Server{
		app:             app,
		drv:             drv,
		engine:          engine,
		crud:            crudSvc,
		cat:             cat,
		auth:            authSvc,
		log:             log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.Health)

	api := s.app.Group("/api")

	api.Post("/auth/login", s.Login)

	api.Post("/tables", s.CreateTable)
	api.Get("/tables", s.ListTables)
	api.Get("/tables/:name", s.GetTable)

	api.Post("/records", s.InsertRecord)
	api.Post("/records/search", s.SearchRecords)
	api.Put("/records", s.UpdateRecords)
	api.Delete("/records", s.DeleteRecords)

	reports := api.Group("/reports", s.auth.Middleware())
	reports.Get("/:slug", s.RunReport)
	reports.Post("/", s.RegisterReport)
	reports.Post("", s.RegisterReport)
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on addr and blocks until shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully drains in-flight requests, waiting at most the
// configured shutdown timeout.
func (s *Server) Shutdown() error {
	if s.shutdownTimeout > 0 {
		return s.app.ShutdownWithTimeout(s.shutdownTimeout)
	}
	return s.app.Shutdown()
}
