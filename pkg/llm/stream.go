package llm

import "time"

// Done reasons carried by terminal chunks.
const (
	DoneReasonStop   = "stop"
	DoneReasonLength = "length"
	DoneReasonError  = "error"
)

// StreamChunk represents a single line of an NDJSON response. Chat chunks
// carry Message, generate chunks carry Response; exactly one of them is set.
// A stream ends with exactly one chunk where Done is true.
type StreamChunk struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   *Message  `json:"message,omitempty"`
	Response  *string   `json:"response,omitempty"`
	Done      bool      `json:"done"`

	DoneReason string `json:"done_reason,omitempty"`
	Error      string `json:"error,omitempty"`

	// Final chunk includes metrics
	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// NewChatChunk builds a message-shaped chunk holding an assistant delta.
func NewChatChunk(model string, createdAt time.Time, content string, done bool) *StreamChunk {
	return &StreamChunk{
		Model:     model,
		CreatedAt: createdAt,
		Message:   &Message{Role: RoleAssistant, Content: content},
		Done:      done,
	}
}

// NewGenerateChunk builds a response-shaped chunk holding a completion delta.
func NewGenerateChunk(model string, createdAt time.Time, response string, done bool) *StreamChunk {
	return &StreamChunk{
		Model:     model,
		CreatedAt: createdAt,
		Response:  &response,
		Done:      done,
	}
}

// Text returns the delta carried by the chunk regardless of its shape.
func (c *StreamChunk) Text() string {
	switch {
	case c.Message != nil:
		return c.Message.Content
	case c.Response != nil:
		return *c.Response
	default:
		return ""
	}
}
