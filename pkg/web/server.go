// Package web serves the voicechat HTTP API: the generate and transcribe
// endpoints, server-hosted conversations and a websocket event stream.
package web

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/hub"
)

const shutdownTimeout = 5 * time.Second

// Server is the voicechat HTTP server.
type Server struct {
	cfg    Config
	app    *fiber.App
	flow   *chat.SubmitFlow
	events *hub.Hub
}

// New builds the fiber app and registers every route.
func New(opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}
	cfg.Logger = cfg.Logger.With("component", "web.server")

	s := &Server{
		cfg:    cfg,
		events: hub.New("events", cfg.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicechat",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.AccessLog != nil {
		app.Use(fiberlog.New(fiberlog.Config{Output: cfg.AccessLog}))
	}

	app.Get("/health", s.handleHealth)

	apiGroup := app.Group("/api")
	apiGroup.Post("/generate", s.handleGenerate)
	apiGroup.Post("/transcribe", s.handleTranscribe)

	if cfg.Store != nil {
		s.flow = chat.NewSubmitFlow(cfg.Store, cfg.Generator, chat.WithFlowLogger(cfg.Logger))
		s.flow.OnAssistantMessage(s.publishReply)
		s.flow.OnFailure(s.publishFailure)

		convs := apiGroup.Group("/conversations")
		convs.Get("/", s.handleListConversations)
		convs.Post("/", s.handleCreateConversation)
		convs.Get("/:id", s.handleGetConversation)
		convs.Delete("/:id", s.handleDeleteConversation)
		convs.Put("/:id/title", s.handleRenameConversation)
		convs.Post("/:id/select", s.handleSelectConversation)
		convs.Post("/:id/messages", s.handleCreateMessage)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(func(conn *websocket.Conn) {
		s.events.Serve(conn)
	}))

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Flow returns the submit flow behind the conversation routes, or nil when
// no store is configured.
func (s *Server) Flow() *chat.SubmitFlow {
	return s.flow
}

// Events returns the event stream hub.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// ListenAndServe listens on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully and disconnects event subscribers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.events.Run(hubCtx)

	s.cfg.Logger.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopHub()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":      "ok",
		"version":     s.cfg.Version,
		"subscribers": s.events.Subscribers(),
	}
	if s.cfg.Store != nil {
		body["conversations"] = s.cfg.Store.Len()
	}
	return c.JSON(body)
}

func (s *Server) publish(ev api.Event) {
	if err := s.events.Publish(ev); err != nil {
		s.cfg.Logger.Warn("broadcast event", "type", ev.Type, "error", err)
	}
}
