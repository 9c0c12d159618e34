package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/adapter"
	"github.com/papercomputeco/lingo/pkg/llm"
)

var errHeadersSent = errors.New("headers already sent")

// operation is one adapter call writing its response into sink.
type operation func(ctx context.Context, sink adapter.Sink) error

// pipeSink hands an adapter's output to the fasthttp stream writer. Headers
// are published through ready; body bytes pass through a synchronous pipe so
// each Write returns only once the stream writer has taken it.
type pipeSink struct {
	ready   chan struct{}
	started atomic.Bool
	status  int
	header  http.Header
	pw      *io.PipeWriter
}

var _ adapter.Sink = (*pipeSink)(nil)

func newPipeSink(pw *io.PipeWriter) *pipeSink {
	return &pipeSink{ready: make(chan struct{}), pw: pw}
}

func (s *pipeSink) WriteHeader(status int, header http.Header) error {
	if !s.started.CompareAndSwap(false, true) {
		return errHeadersSent
	}
	s.status = status
	s.header = header.Clone()
	close(s.ready)
	return nil
}

func (s *pipeSink) Write(p []byte) (int, error) {
	if !s.Started() {
		_ = s.WriteHeader(http.StatusOK, nil)
	}
	n, err := s.pw.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", adapter.ErrClientClosed, err)
	}
	return n, nil
}

func (s *pipeSink) Started() bool {
	return s.started.Load()
}

// stream runs op in its own goroutine and relays what it writes. If op fails
// before committing headers the client gets a 502 with errMsg; after that the
// adapter owns the body and failures are only logged. A client that stops
// reading cancels op's context.
func (s *Server) stream(c *fiber.Ctx, name string, errMsg string, op operation) error {
	logger := s.requestLogger(c).With(zap.String("op", name))

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	sink := newPipeSink(pw)
	done := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", name, r)
			}
			pw.Close()
			done <- err
		}()
		err = op(ctx, sink)
	}()

	select {
	case <-sink.ready:
	case err := <-done:
		if !sink.Started() {
			cancel()
			if err == nil {
				err = errors.New("backend produced no response")
			}
			logger.Error("backend call failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
				Error:   errMsg,
				Details: err.Error(),
			})
		}
		done <- err
	}

	c.Status(sink.status)
	for key, values := range sink.header {
		for i, v := range values {
			if i == 0 {
				c.Set(key, v)
				continue
			}
			c.Response().Header.Add(key, v)
		}
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		buf := make([]byte, 32*1024)
		written := 0
		for {
			n, readErr := pr.Read(buf)
			if n > 0 {
				_, err := w.Write(buf[:n])
				if err == nil {
					err = w.Flush()
				}
				if err != nil {
					logger.Debug("client stopped reading", zap.Error(err))
					cancel()
					pr.CloseWithError(adapter.ErrClientClosed)
					break
				}
				written += n
			}
			if readErr != nil {
				break
			}
		}

		err := <-done
		switch {
		case err == nil:
			logger.Debug("stream complete", zap.Int("bytes", written))
		case errors.Is(err, adapter.ErrClientClosed), errors.Is(err, context.Canceled):
			logger.Debug("stream abandoned by client", zap.Error(err))
		default:
			logger.Error("stream failed", zap.Error(err))
		}
	}))

	return nil
}
