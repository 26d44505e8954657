package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fbinsight/internal/config"
)

// NewProvider は設定に応じたAIプロバイダを生成する。
// 選択されたプロバイダに必要なAPIキーが未設定の場合はエラーを返す。
func NewProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.AIProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return NewGeminiClient(&http.Client{}, logger, cfg.GeminiAPIKey, cfg.GeminiModel), nil

	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case "bedrock":
		return NewBedrockClient(ctx, cfg.BedrockRegion, cfg.BedrockModel)

	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.AIProvider)
	}
}
