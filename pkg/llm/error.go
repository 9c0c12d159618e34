// Package llm provides the Ollama-compatible wire representations of requests,
// streamed responses and model listings that every backend is normalized into.
package llm

// ErrorResponse is the JSON body returned for failed API calls.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
