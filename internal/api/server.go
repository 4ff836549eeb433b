// Package api serves the station over HTTP: a JSON control API, a
// websocket live feed and the client the CLI uses to talk to both.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/OCAP2/dockyard/internal/dispatcher"
	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/station"
)

// DefaultFeedInterval is how often the live feed pushes snapshots.
const DefaultFeedInterval = 100 * time.Millisecond

// Station is the read side of the frame driver. *station.Station satisfies it.
type Station interface {
	Snapshot() *station.Snapshot
	Catalog() *docking.Catalog
}

// Dispatcher routes commands. *dispatcher.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, e dispatcher.Event) (any, error)
}

// Dependencies holds all dependencies for the API server.
type Dependencies struct {
	Station      Station
	Dispatcher   Dispatcher
	Logger       *slog.Logger
	Version      string
	AllowOrigins string        // CORS origins, empty disables CORS
	FeedInterval time.Duration // live feed push interval
}

// Server is the HTTP control surface.
type Server struct {
	deps Dependencies
	log  *slog.Logger
	app  *fiber.App
	hub  *Hub
}

// New builds the fiber app and registers every route.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FeedInterval <= 0 {
		deps.FeedInterval = DefaultFeedInterval
	}

	s := &Server{
		deps: deps,
		log:  deps.Logger.With("component", "api"),
		app: fiber.New(fiber.Config{
			AppName:               "dockyard",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
	}
	s.hub = NewHub(deps.Station, deps.FeedInterval, deps.Version, s.log)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	if s.deps.AllowOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: s.deps.AllowOrigins,
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}))
	}

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/station", s.handleStation)
	api.Get("/topology", s.handleTopology)
	api.Get("/path/:id", s.handlePath)
	api.Get("/catalog", s.handleCatalog)
	api.Post("/catalog", s.handleCatalogAdd)
	api.Post("/launch", s.handleLaunch)
	api.Post("/fault", s.handleFault)
	api.Post("/repair", s.handleRepair)
	api.Post("/modules/:id/repair", s.handleRepairModule)
	api.Delete("/modules/:id", s.handleUndock)
	api.Put("/hub", s.handleHub)
	api.Post("/hittest", s.handleHitTest)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.hub.Serve))
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Serve runs the live feed and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(feedCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	s.log.Info("API listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
