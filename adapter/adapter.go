// Package adapter normalizes LLM backends into the Ollama NDJSON streaming
// contract. Two backends exist: Ollama, whose API is relayed as is, and Gemini,
// whose API is translated into Ollama-shaped chunks.
package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/lingo/pkg/llm"
)

var (
	// ErrBackendUnreachable reports a failed backend call: connection refused,
	// reset or timed out, or a backend-side error.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrMalformedResponse reports a backend body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrUnsupportedEndpoint reports an operation the active backend does not offer.
	ErrUnsupportedEndpoint = errors.New("unsupported endpoint")

	// ErrMissingCredential reports a backend constructed without its credential.
	ErrMissingCredential = errors.New("missing credential")

	// ErrClientClosed reports that the client stopped reading the response.
	ErrClientClosed = errors.New("client closed connection")
)

// Kind names a backend implementation.
type Kind string

const (
	KindOllama Kind = "ollama"
	KindGemini Kind = "gemini"
)

// ParseKind matches s case-insensitively. ok is false when s names no backend.
func ParseKind(s string) (kind Kind, ok bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindOllama:
		return KindOllama, true
	case KindGemini:
		return KindGemini, true
	default:
		return KindOllama, false
	}
}

// DisplayName is the human readable provider name.
func (k Kind) DisplayName() string {
	switch k {
	case KindGemini:
		return "Gemini"
	default:
		return "Ollama"
	}
}

// Adapter is a backend capable of listing models and serving chat and
// generate calls in the Ollama wire format.
//
// Chat and Generate write their whole response to sink. Once sink has been
// started they always finish the stream with exactly one done chunk, folding
// any failure into that chunk, and return the failure for logging. An error
// returned while sink is not started means nothing was written and the caller
// owns the error response.
type Adapter interface {
	Kind() Kind
	ListModels(ctx context.Context) (*llm.ModelList, error)
	Chat(ctx context.Context, req *llm.ChatRequest, sink Sink) error
	Generate(ctx context.Context, req *llm.GenerateRequest, sink Sink) error
}

// Forwarder is implemented by adapters that can relay arbitrary API calls to
// their backend unmodified.
type Forwarder interface {
	Forward(ctx context.Context, req *ForwardRequest, sink Sink) error
}

// ForwardRequest is an inbound API call to relay verbatim.
type ForwardRequest struct {
	Method string
	// Path including the leading slash, e.g. "/api/show".
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.Reader
}
