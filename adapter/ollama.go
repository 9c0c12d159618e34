package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/pkg/config"
	"github.com/papercomputeco/lingo/pkg/llm"
)

// hopHeaders are connection-scoped and never relayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Host",
	"Content-Length",
}

// Ollama relays calls to a local Ollama server. Request bodies are forwarded
// as received and response lines are relayed byte for byte.
type Ollama struct {
	baseURL    string
	hostHeader string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

var (
	_ Adapter   = (*Ollama)(nil)
	_ Forwarder = (*Ollama)(nil)
)

// NewOllama creates an adapter for the Ollama server described by cfg.
func NewOllama(cfg config.OllamaConfig, logger *zap.Logger) *Ollama {
	return &Ollama{
		baseURL:    cfg.BaseURL(),
		hostHeader: cfg.HostPort(),
		httpClient: &http.Client{
			// LLM requests can be slow, especially on first model load
			Timeout: cfg.Timeout.Duration,
		},
		logger: logger.With(zap.String("component", "ollama")),
		now:    time.Now,
	}
}

func (o *Ollama) Kind() Kind {
	return KindOllama
}

// ListModels queries /api/tags on the Ollama server.
func (o *Ollama) ListModels(ctx context.Context) (*llm.ModelList, error) {
	upstreamURL := o.baseURL + "/api/tags"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrBackendUnreachable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned %d: %s", ErrBackendUnreachable, httpResp.StatusCode, truncate(string(body), 200))
	}

	var list llm.ModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	o.logger.Debug("listed models", zap.Int("count", len(list.Models)))
	return &list, nil
}

// Chat relays a chat request to /api/chat.
func (o *Ollama) Chat(ctx context.Context, req *llm.ChatRequest, sink Sink) error {
	body, err := req.Body()
	if err != nil {
		return fmt.Errorf("encode chat request: %w", err)
	}
	return o.relay(ctx, "/api/chat", body, shapeChat, req.Model, sink)
}

// Generate relays a generate request to /api/generate.
func (o *Ollama) Generate(ctx context.Context, req *llm.GenerateRequest, sink Sink) error {
	body, err := req.Body()
	if err != nil {
		return fmt.Errorf("encode generate request: %w", err)
	}
	return o.relay(ctx, "/api/generate", body, shapeGenerate, req.Model, sink)
}

// relay posts body to path and streams the NDJSON response into sink line by
// line. Non-200 responses are relayed raw with the upstream status.
func (o *Ollama) relay(ctx context.Context, path string, body []byte, sh shape, model string, sink Sink) error {
	startTime := time.Now()
	upstreamURL := o.baseURL + path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	o.logger.Debug("forwarding request to upstream",
		zap.String("url", upstreamURL),
		zap.Int("body_size", len(body)),
	)

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	defer httpResp.Body.Close()

	header := streamHeader()
	if ct := httpResp.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	if err := sink.WriteHeader(httpResp.StatusCode, header); err != nil {
		return err
	}

	if httpResp.StatusCode != http.StatusOK {
		o.logger.Warn("upstream rejected request",
			zap.String("url", upstreamURL),
			zap.Int("status", httpResp.StatusCode),
		)
		_, err := io.Copy(sink, httpResp.Body)
		return err
	}

	cw := &chunkWriter{sink: sink, shape: sh, model: model, now: o.now}
	reader := bufio.NewReader(httpResp.Body)
	sawDone := false
	chunks := 0

	// The done chunk ends the relay: anything after it, including a read
	// error, is not passed on.
	for !sawDone {
		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var chunk llm.StreamChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				o.logger.Warn("failed to parse chunk", zap.Error(err), zap.String("line", truncate(string(line), 100)))
			} else {
				sawDone = chunk.Done
				o.logger.Debug("streaming chunk",
					zap.Bool("done", chunk.Done),
					zap.String("content", truncate(chunk.Text(), 50)),
				)
			}

			if line[len(line)-1] != '\n' {
				line = append(line, '\n')
			}
			if _, err := sink.Write(line); err != nil {
				return err
			}
			chunks++
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if sawDone {
				o.logger.Debug("stream closed after done chunk", zap.Error(readErr))
				break
			}
			err := fmt.Errorf("%w: reading stream: %w", ErrBackendUnreachable, readErr)
			cw.fail(err)
			return err
		}
	}

	if !sawDone {
		err := fmt.Errorf("%w: stream ended before completion", ErrBackendUnreachable)
		cw.fail(err)
		return err
	}

	o.logger.Debug("streaming complete",
		zap.String("op", sh.String()),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Forward relays an arbitrary API call to the Ollama server, mirroring method,
// path, query, headers and body. Only the Host header is replaced.
func (o *Ollama) Forward(ctx context.Context, req *ForwardRequest, sink Sink) error {
	upstreamURL := o.baseURL + req.Path
	if req.RawQuery != "" {
		upstreamURL += "?" + req.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, upstreamURL, req.Body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header = withoutHopHeaders(req.Header)
	httpReq.Host = o.hostHeader

	o.logger.Debug("forwarding passthrough request",
		zap.String("method", req.Method),
		zap.String("url", upstreamURL),
	)

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	defer httpResp.Body.Close()

	if err := sink.WriteHeader(httpResp.StatusCode, withoutHopHeaders(httpResp.Header)); err != nil {
		return err
	}

	if _, err := io.Copy(sink, httpResp.Body); err != nil {
		return fmt.Errorf("relay body: %w", err)
	}
	return nil
}

func withoutHopHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, name := range hopHeaders {
		out.Del(name)
	}
	return out
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
