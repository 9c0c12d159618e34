package adapter

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/pkg/config"
)

// New selects and builds the adapter named by cfg.Provider. Unknown or empty
// providers fall back to Ollama. Building the Gemini adapter without an API
// key fails; callers treat that as fatal.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Adapter, error) {
	kind, ok := ParseKind(cfg.Provider)
	if !ok && cfg.Provider != "" {
		logger.Warn("unrecognized provider, falling back to ollama", zap.String("provider", cfg.Provider))
	}

	switch kind {
	case KindGemini:
		g, err := NewGemini(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using gemini adapter", zap.String("default_model", cfg.Gemini.Model))
		return g, nil

	default:
		logger.Info("using ollama adapter", zap.String("upstream", cfg.Ollama.BaseURL()))
		return NewOllama(cfg.Ollama, logger), nil
	}
}
