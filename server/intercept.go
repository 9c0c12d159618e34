package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/pkg/llm"
)

var separator = strings.Repeat("═", 60)

// Capture is one intercepted request.
type Capture struct {
	Time      time.Time
	URL       string
	Method    string
	RequestID string
	Header    map[string][]string
	Body      []byte
}

// Interceptor writes captures to out, one block per request.
type Interceptor struct {
	mu  sync.Mutex
	out io.Writer
}

// NewInterceptor creates an Interceptor writing to out.
func NewInterceptor(out io.Writer) *Interceptor {
	return &Interceptor{out: out}
}

// Record writes c as a diagnostic block. Concurrent captures never interleave.
func (i *Interceptor) Record(c Capture) error {
	var b strings.Builder

	b.WriteString("\n" + separator + "\n")
	fmt.Fprintf(&b, "[TEST MODE] Request Intercepted @ %s\n", c.Time.UTC().Format(time.RFC3339))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "URL:        %s\n", c.URL)
	fmt.Fprintf(&b, "Method:     %s\n", c.Method)
	if c.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", c.RequestID)
	}

	b.WriteString("Headers:\n")
	names := make([]string, 0, len(c.Header))
	for name := range c.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "   %s: %s\n", strings.ToLower(name), strings.Join(c.Header[name], ", "))
	}

	body := bytes.TrimSpace(c.Body)
	var pretty bytes.Buffer
	switch {
	case len(body) == 0:
		b.WriteString("Body: (empty)\n")
	case json.Indent(&pretty, body, "", "  ") == nil:
		b.WriteString("Body (JSON):\n")
		b.Write(pretty.Bytes())
		b.WriteString("\n")
	default:
		b.WriteString("Body (Raw):\n")
		b.Write(body)
		b.WriteString("\n")
	}
	b.WriteString(separator + "\n\n")

	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := io.WriteString(i.out, b.String())
	return err
}

// handleIntercept captures the request and answers 500 without touching the
// adapter.
func (s *Server) handleIntercept(c *fiber.Ctx) error {
	capture := Capture{
		Time:   time.Now(),
		URL:    c.OriginalURL(),
		Method: c.Method(),
		Header: c.GetReqHeaders(),
		Body:   c.Body(),
	}
	capture.RequestID, _ = c.Locals(requestIDKey).(string)

	if err := s.interceptor.Record(capture); err != nil {
		s.requestLogger(c).Warn("failed to write intercepted request", zap.Error(err))
	}
	s.requestLogger(c).Info("request intercepted",
		zap.String("method", capture.Method),
		zap.String("url", capture.URL),
	)

	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "Test mode enabled",
		Message: "Request intercepted for debugging purposes",
	})
}
