package llm

import "encoding/json"

// ChatRequest represents a chat completion request (Ollama-compatible).
type ChatRequest struct {
	Model    string    `json:"model"`            // Model name (e.g., "llama3.2", "gemini-2.0-flash")
	Messages []Message `json:"messages"`         // Conversation history
	Stream   *bool     `json:"stream,omitempty"` // Whether to stream responses (default: true in Ollama)
	Format   string    `json:"format,omitempty"` // Response format ("json" for JSON mode)

	// Generation options
	Options *Options `json:"options,omitempty"`

	// Keep model loaded
	KeepAlive string `json:"keep_alive,omitempty"` // How long to keep model in memory

	// Raw is the request body as received. Backends that speak the Ollama API
	// natively forward it untouched so fields unknown to this type survive.
	Raw json.RawMessage `json:"-"`
}

// IsStreaming reports whether the caller asked for a streamed response.
// Ollama streams unless "stream": false is sent explicitly.
func (r *ChatRequest) IsStreaming() bool {
	return r.Stream == nil || *r.Stream
}

// Body returns the bytes to forward upstream: the raw inbound body when
// present, otherwise the marshalled request.
func (r *ChatRequest) Body() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(r)
}

// ParseChatRequest decodes a chat request and retains the raw body.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	req.Raw = append(json.RawMessage(nil), body...)
	return &req, nil
}

// GenerateRequest is the single-turn completion request (Ollama /api/generate).
type GenerateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	System    string   `json:"system,omitempty"`
	Stream    *bool    `json:"stream,omitempty"`
	Format    string   `json:"format,omitempty"`
	Options   *Options `json:"options,omitempty"`
	KeepAlive string   `json:"keep_alive,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// IsStreaming reports whether the caller asked for a streamed response.
func (r *GenerateRequest) IsStreaming() bool {
	return r.Stream == nil || *r.Stream
}

// Body returns the bytes to forward upstream.
func (r *GenerateRequest) Body() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(r)
}

// ParseGenerateRequest decodes a generate request and retains the raw body.
func ParseGenerateRequest(body []byte) (*GenerateRequest, error) {
	var req GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	req.Raw = append(json.RawMessage(nil), body...)
	return &req, nil
}
