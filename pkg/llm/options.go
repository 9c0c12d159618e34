package llm

// Options carries the sampling parameters of a request. Ollama receives them
// untouched inside the raw body; the Gemini adapter maps the subset Gemini
// understands and ignores the rest.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty"`

	// NumPredict caps the generated tokens; values <= 0 mean no cap.
	NumPredict *int `json:"num_predict,omitempty"`
	NumCtx     *int `json:"num_ctx,omitempty"`

	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	RepeatLastN      *int     `json:"repeat_last_n,omitempty"`

	Stop []string `json:"stop,omitempty"`
}
