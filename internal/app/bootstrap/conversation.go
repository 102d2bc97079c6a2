package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/aim-injury/aim-intake/internal/catalog"
	appconfig "github.com/aim-injury/aim-intake/internal/config"
	"github.com/aim-injury/aim-intake/internal/conversation"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

// BuildLLMClient wires Bedrock as the primary model and Gemini as the
// fallback. It returns nil when neither is configured. The returned close
// func is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() {}

	var primary conversation.LLMClient
	if strings.TrimSpace(cfg.BedrockModelID) != "" && awsCfg != nil {
		primary = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg))
	}

	var gemini *conversation.GeminiLLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		g, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			gemini = g
		}
	}
	closeGemini := noop
	if gemini != nil {
		closeGemini = func() {
			if err := gemini.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		}
	}

	switch {
	case primary != nil && gemini != nil:
		return conversation.NewFallbackLLMClient(primary, gemini, logger), closeGemini
	case primary != nil:
		return primary, noop
	case gemini != nil:
		return gemini, closeGemini
	}
	return nil, noop
}

// BuildResponder returns the model-backed responder when a client is
// available and the keyword responder otherwise.
func BuildResponder(client conversation.LLMClient, cfg *appconfig.Config, cat *catalog.Catalog, m *metrics.Metrics, logger *logging.Logger) conversation.ChatResponder {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		logger.Warn("no llm credentials configured; using keyword responder")
		return conversation.NewKeywordResponder(cat)
	}
	return conversation.NewLLMResponder(client, conversation.LLMConfig{
		Model:       cfg.BedrockModelID,
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
		Timeout:     cfg.LLMTimeout,
	}, cat, m)
}
