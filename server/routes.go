package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/adapter"
	"github.com/papercomputeco/lingo/pkg/llm"
)

// handleTags lists the backend's models.
func (s *Server) handleTags(c *fiber.Ctx) error {
	logger := s.requestLogger(c)

	list, err := s.adapter.ListModels(c.UserContext())
	if err != nil {
		logger.Error("failed to list models", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error:   "Failed to fetch models",
			Details: err.Error(),
		})
	}

	logger.Debug("listed models", zap.Int("count", len(list.Models)))
	return c.JSON(list)
}

// handleChat relays a chat request through the adapter.
func (s *Server) handleChat(c *fiber.Ctx) error {
	req, err := llm.ParseChatRequest(c.Body())
	if err != nil {
		s.requestLogger(c).Warn("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	s.requestLogger(c).Debug("received chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.IsStreaming()),
	)

	return s.stream(c, "chat", "Failed to process chat request", func(ctx context.Context, sink adapter.Sink) error {
		return s.adapter.Chat(ctx, req, sink)
	})
}

// handleGenerate relays a generate request through the adapter.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	req, err := llm.ParseGenerateRequest(c.Body())
	if err != nil {
		s.requestLogger(c).Warn("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	s.requestLogger(c).Debug("received generate request",
		zap.String("model", req.Model),
		zap.Int("prompt_length", len(req.Prompt)),
		zap.Bool("stream", req.IsStreaming()),
	)

	return s.stream(c, "generate", "Failed to process generate request", func(ctx context.Context, sink adapter.Sink) error {
		return s.adapter.Generate(ctx, req, sink)
	})
}

// handleFallback answers every other /api call. Backends that can forward
// raw calls do so when passthrough is enabled; otherwise the call is refused.
func (s *Server) handleFallback(c *fiber.Ctx) error {
	logger := s.requestLogger(c)

	if s.adapter.Kind() == adapter.KindGemini {
		logger.Info("refused request", zap.Error(unsupported(c)))
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{
			Error:   "Endpoint not supported",
			Message: "This endpoint is not available when using Gemini provider",
		})
	}

	fwd, ok := s.adapter.(adapter.Forwarder)
	if !s.config.Passthrough || !ok {
		logger.Info("refused request", zap.Error(unsupported(c)))
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{
			Error:   "Unknown endpoint",
			Message: "Use /api/tags, /api/chat, or /api/generate",
		})
	}

	req := &adapter.ForwardRequest{
		Method:   c.Method(),
		Path:     c.Path(),
		RawQuery: string(c.Request().URI().QueryString()),
		Header:   requestHeader(c),
	}
	if body := c.Body(); len(body) > 0 {
		req.Body = bytes.NewReader(append([]byte(nil), body...))
	}

	return s.stream(c, "forward", "Failed to connect to Ollama server", func(ctx context.Context, sink adapter.Sink) error {
		return fwd.Forward(ctx, req, sink)
	})
}

func requestHeader(c *fiber.Ctx) http.Header {
	h := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})
	return h
}

func unsupported(c *fiber.Ctx) error {
	return fmt.Errorf("%w: %s %s", adapter.ErrUnsupportedEndpoint, c.Method(), c.Path())
}
