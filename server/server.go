// Package server exposes an adapter over the Ollama HTTP API and serves the
// translation app's static build.
package server

import (
	"context"
	"net"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/adapter"
)

const requestIDKey = "requestid"

// Server routes Ollama-style API calls to a single backend adapter. The mode
// (relay or diagnostic intercept) is fixed when the server is created.
type Server struct {
	config      Config
	adapter     adapter.Adapter
	interceptor *Interceptor
	logger      *zap.Logger
	app         *fiber.App
}

// New creates a new Server.
func New(config Config, a adapter.Adapter, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
		// Request data is handed to adapter goroutines that outlive the handler
		Immutable: true,
	})

	s := &Server{
		config:  config,
		adapter: a,
		logger:  logger.With(zap.String("component", "server")),
		app:     app,
	}

	if config.TestMode {
		out := config.DiagnosticOutput
		if out == nil {
			out = os.Stdout
		}
		s.interceptor = NewInterceptor(out)
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))

	s.routes()

	return s
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	return s.RunWithListener(ln)
}

// RunWithListener serves on an already bound listener. It blocks until the
// server is shut down.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting server",
		zap.String("listen", ln.Addr().String()),
		zap.String("provider", string(s.adapter.Kind())),
		zap.Bool("test_mode", s.config.TestMode),
		zap.Bool("passthrough", s.config.Passthrough),
	)
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if s.interceptor != nil {
		s.app.Post("/api", s.handleIntercept)
		s.app.Post("/api/*", s.handleIntercept)
	}

	api := s.app.Group("/api")
	api.Get("/tags", s.handleTags)
	api.Post("/chat", s.handleChat)
	api.Post("/generate", s.handleGenerate)

	s.app.All("/api", s.handleFallback)
	s.app.All("/api/*", s.handleFallback)

	s.app.Get("/*", newStaticHandler(s.config.StaticDir, s.logger))
}

// requestLogger attaches the request id to the server logger.
func (s *Server) requestLogger(c *fiber.Ctx) *zap.Logger {
	id, _ := c.Locals(requestIDKey).(string)
	return s.logger.With(zap.String("request_id", id))
}
