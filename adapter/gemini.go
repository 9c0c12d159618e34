package adapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/papercomputeco/lingo/pkg/config"
	"github.com/papercomputeco/lingo/pkg/llm"
)

// geminiCatalog is served by ListModels; Gemini offers no listing that maps
// onto /api/tags.
var geminiCatalog = []struct {
	name   string
	size   string
	family string
}{
	{name: "gemini-2.5-flash", size: "Medium", family: "Gemini 2.5"},
	{name: "gemini-2.0-flash", size: "Medium", family: "Gemini 2.0"},
	{name: "gemini-2.0-flash-lite", size: "Small", family: "Gemini 2.0"},
}

// generator is the part of the genai model service the adapter drives.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Gemini translates Ollama-shaped requests into Gemini API calls and
// re-encodes the results as Ollama chunks.
type Gemini struct {
	models       generator
	defaultModel string
	logger       *zap.Logger
	now          func() time.Time
}

var _ Adapter = (*Gemini)(nil)

// NewGemini creates a Gemini adapter. It fails with ErrMissingCredential when
// no API key is configured.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newGemini(client.Models, cfg.Model, logger), nil
}

func newGemini(models generator, defaultModel string, logger *zap.Logger) *Gemini {
	return &Gemini{
		models:       models,
		defaultModel: defaultModel,
		logger:       logger.With(zap.String("component", "gemini")),
		now:          time.Now,
	}
}

func (g *Gemini) Kind() Kind {
	return KindGemini
}

// ListModels returns the curated catalog, led by the configured default model
// when the catalog does not already contain it.
func (g *Gemini) ListModels(_ context.Context) (*llm.ModelList, error) {
	modifiedAt := g.now().UTC()
	list := &llm.ModelList{Models: make([]llm.ModelDescriptor, 0, len(geminiCatalog)+1)}
	seen := make(map[string]bool)

	add := func(name, size, family string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		list.Models = append(list.Models, llm.ModelDescriptor{
			Name:       name,
			Model:      name,
			ModifiedAt: modifiedAt,
			Details: llm.ModelDetails{
				Format:        "gemini",
				Family:        family,
				ParameterSize: size,
			},
		})
	}

	known := false
	for _, m := range geminiCatalog {
		known = known || m.name == g.defaultModel
	}
	if !known {
		add(g.defaultModel, "", "Gemini")
	}
	for _, m := range geminiCatalog {
		add(m.name, m.size, m.family)
	}

	return list, nil
}

// Chat converts the conversation and calls Gemini.
func (g *Gemini) Chat(ctx context.Context, req *llm.ChatRequest, sink Sink) error {
	contents, system := convertMessages(req.Messages)
	return g.run(ctx, geminiCall{
		model:    g.model(req.Model),
		contents: contents,
		config:   generationConfig(req.Options, req.Format, system),
		stream:   req.IsStreaming(),
	}, shapeChat, sink)
}

// Generate sends a single user turn with an optional system instruction.
func (g *Gemini) Generate(ctx context.Context, req *llm.GenerateRequest, sink Sink) error {
	var system *genai.Content
	if req.System != "" {
		system = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return g.run(ctx, geminiCall{
		model:    g.model(req.Model),
		contents: []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		config:   generationConfig(req.Options, req.Format, system),
		stream:   req.IsStreaming(),
	}, shapeGenerate, sink)
}

func (g *Gemini) model(requested string) string {
	if requested != "" {
		return requested
	}
	return g.defaultModel
}

type geminiCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	stream   bool
}

func (g *Gemini) run(ctx context.Context, call geminiCall, sh shape, sink Sink) error {
	g.logger.Debug("calling gemini",
		zap.String("op", sh.String()),
		zap.String("model", call.model),
		zap.Int("content_count", len(call.contents)),
		zap.Bool("stream", call.stream),
	)

	cw := &chunkWriter{sink: sink, shape: sh, model: call.model, now: g.now}
	if call.stream {
		return g.stream(ctx, call, cw)
	}
	return g.single(ctx, call, cw)
}

// single waits for the full completion and writes it as one done chunk.
func (g *Gemini) single(ctx context.Context, call geminiCall, cw *chunkWriter) error {
	startTime := g.now()

	resp, err := g.models.GenerateContent(ctx, call.model, call.contents, call.config)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	if err := blocked(resp); err != nil {
		return err
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: response has no candidates", ErrBackendUnreachable)
	}

	if err := cw.sink.WriteHeader(http.StatusOK, streamHeader()); err != nil {
		return err
	}

	stats := usageOf(resp)
	stats.duration = g.now().Sub(startTime)
	reason := finishReason(resp)
	if reason == "" {
		reason = llm.DoneReasonStop
	}
	return cw.finish(resp.Text(), reason, stats)
}

// stream emits one chunk per non-empty fragment followed by an empty done
// chunk. Headers are committed once the first result arrives so that a call
// rejected outright still gets an ordinary error response.
func (g *Gemini) stream(ctx context.Context, call geminiCall, cw *chunkWriter) error {
	startTime := g.now()

	next, stop := iter.Pull2(g.models.GenerateContentStream(ctx, call.model, call.contents, call.config))
	defer stop()

	resp, err, ok := next()
	if ok && err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	if ok {
		if err := blocked(resp); err != nil {
			return err
		}
	}

	if err := cw.sink.WriteHeader(http.StatusOK, streamHeader()); err != nil {
		return err
	}

	reason := llm.DoneReasonStop
	var stats usage
	fragments := 0

	for ; ok; resp, err, ok = next() {
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
			g.logger.Error("gemini stream failed", zap.String("model", call.model), zap.Error(err))
			cw.fail(err)
			return err
		}
		if resp == nil {
			continue
		}
		if err := blocked(resp); err != nil {
			g.logger.Error("gemini stream blocked", zap.String("model", call.model), zap.Error(err))
			cw.fail(err)
			return err
		}

		if r := finishReason(resp); r != "" {
			reason = r
		}
		stats.update(usageOf(resp))

		text := resp.Text()
		if text == "" {
			continue
		}
		if err := cw.delta(text); err != nil {
			return err
		}
		fragments++
	}

	stats.duration = g.now().Sub(startTime)
	g.logger.Debug("gemini stream complete",
		zap.String("model", call.model),
		zap.Int("fragments", fragments),
		zap.String("done_reason", reason),
	)
	return cw.finish("", reason, stats)
}

// blocked reports a prompt rejected by the safety filters. Such responses
// carry no candidates, only the feedback.
func blocked(resp *genai.GenerateContentResponse) error {
	if resp == nil || resp.PromptFeedback == nil || resp.PromptFeedback.BlockReason == "" {
		return nil
	}
	reason := string(resp.PromptFeedback.BlockReason)
	if msg := resp.PromptFeedback.BlockReasonMessage; msg != "" {
		reason += ": " + msg
	}
	return fmt.Errorf("%w: prompt blocked: %s", ErrBackendUnreachable, reason)
}

// convertMessages splits out system messages as the system instruction and
// maps assistant turns to the model role and every other turn to the user role.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, messageContent(msg, genai.RoleModel))
		default:
			contents = append(contents, messageContent(msg, genai.RoleUser))
		}
	}

	if len(systemParts) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
}

// messageContent carries the text and any decodable images of msg. Images
// that are not valid base64 are dropped.
func messageContent(msg llm.Message, role genai.Role) *genai.Content {
	if len(msg.Images) == 0 {
		return genai.NewContentFromText(msg.Content, role)
	}

	parts := []*genai.Part{genai.NewPartFromText(msg.Content)}
	for _, img := range msg.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(data, http.DetectContentType(data)))
	}
	return genai.NewContentFromParts(parts, role)
}

func generationConfig(opts *llm.Options, format string, system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if format == "json" {
		cfg.ResponseMIMEType = "application/json"
	}
	if opts == nil {
		return cfg
	}

	if opts.Temperature != nil {
		v := float32(*opts.Temperature)
		cfg.Temperature = &v
	}
	if opts.TopP != nil {
		v := float32(*opts.TopP)
		cfg.TopP = &v
	}
	if opts.TopK != nil {
		v := float32(*opts.TopK)
		cfg.TopK = &v
	}
	if opts.Seed != nil {
		v := int32(*opts.Seed)
		cfg.Seed = &v
	}
	if opts.NumPredict != nil && *opts.NumPredict > 0 {
		cfg.MaxOutputTokens = int32(*opts.NumPredict)
	}
	if opts.PresencePenalty != nil {
		v := float32(*opts.PresencePenalty)
		cfg.PresencePenalty = &v
	}
	if opts.FrequencyPenalty != nil {
		v := float32(*opts.FrequencyPenalty)
		cfg.FrequencyPenalty = &v
	}
	if len(opts.Stop) > 0 {
		cfg.StopSequences = opts.Stop
	}
	return cfg
}

// finishReason maps the first candidate's finish reason onto Ollama's
// done_reason vocabulary. It returns "" while generation is in progress.
func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	switch fr := resp.Candidates[0].FinishReason; fr {
	case "", genai.FinishReasonUnspecified:
		return ""
	case genai.FinishReasonStop:
		return llm.DoneReasonStop
	case genai.FinishReasonMaxTokens:
		return llm.DoneReasonLength
	default:
		return strings.ToLower(string(fr))
	}
}

func usageOf(resp *genai.GenerateContentResponse) usage {
	if resp == nil || resp.UsageMetadata == nil {
		return usage{}
	}
	return usage{
		promptTokens: int(resp.UsageMetadata.PromptTokenCount),
		outputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// update keeps the latest non-zero counts; Gemini reports running totals.
func (u *usage) update(latest usage) {
	if latest.promptTokens > 0 {
		u.promptTokens = latest.promptTokens
	}
	if latest.outputTokens > 0 {
		u.outputTokens = latest.outputTokens
	}
}
