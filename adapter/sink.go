package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/papercomputeco/lingo/pkg/llm"
)

// NDJSONContentType is the media type of streamed responses.
const NDJSONContentType = "application/x-ndjson"

// Sink receives a response as it is produced. Implementations must deliver
// each Write to the client before returning so streams are not coalesced.
type Sink interface {
	// WriteHeader commits the status code and headers. It may be called once.
	WriteHeader(status int, header http.Header) error

	// Write emits body bytes, committing 200 with no headers if WriteHeader
	// has not been called.
	Write(p []byte) (int, error)

	// Started reports whether the status and headers have been committed.
	Started() bool
}

// WriteChunk encodes chunk as one NDJSON line.
func WriteChunk(sink Sink, chunk *llm.StreamChunk) error {
	line, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	line = append(line, '\n')
	_, err = sink.Write(line)
	return err
}

func streamHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", NDJSONContentType)
	h.Set("Cache-Control", "no-cache")
	return h
}

// shape selects how deltas are carried: chat chunks use message.content,
// generate chunks use response.
type shape int

const (
	shapeChat shape = iota
	shapeGenerate
)

func (s shape) String() string {
	if s == shapeGenerate {
		return "generate"
	}
	return "chat"
}

// chunkWriter emits Ollama-shaped chunks for one response.
type chunkWriter struct {
	sink  Sink
	shape shape
	model string
	now   func() time.Time
}

func (w *chunkWriter) chunk(text string, done bool) *llm.StreamChunk {
	if w.shape == shapeGenerate {
		return llm.NewGenerateChunk(w.model, w.now().UTC(), text, done)
	}
	return llm.NewChatChunk(w.model, w.now().UTC(), text, done)
}

func (w *chunkWriter) delta(text string) error {
	return WriteChunk(w.sink, w.chunk(text, false))
}

// finish writes the terminal chunk. The delta is empty for streamed
// responses and the full text for single-shot ones.
func (w *chunkWriter) finish(text string, reason string, stats usage) error {
	c := w.chunk(text, true)
	c.DoneReason = reason
	c.TotalDuration = stats.duration.Nanoseconds()
	c.PromptEvalCount = stats.promptTokens
	c.EvalCount = stats.outputTokens
	return WriteChunk(w.sink, c)
}

// fail writes a terminal chunk carrying err. Write failures are ignored: the
// client is already gone or the stream is already broken.
func (w *chunkWriter) fail(err error) {
	c := w.chunk("", true)
	c.DoneReason = llm.DoneReasonError
	c.Error = err.Error()
	_ = WriteChunk(w.sink, c)
}

type usage struct {
	duration     time.Duration
	promptTokens int
	outputTokens int
}
