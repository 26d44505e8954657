package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient はAnthropic Messages APIのクライアント。
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient はAnthropicClientの新しいインスタンスを生成する。
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client: &client,
		model:  anthropic.Model(model),
	}
}

// Name はプロバイダ名を返す。
func (c *AnthropicClient) Name() string {
	return fmt.Sprintf("anthropic (%s)", c.model)
}

// ClassifySentiment はフィードバックテキストの感情ラベルを取得する。
func (c *AnthropicClient) ClassifySentiment(ctx context.Context, text string) (string, error) {
	response, err := c.generate(ctx, buildClassifyPrompt(text), 32)
	if err != nil {
		return "", err
	}
	return extractLabel(response), nil
}

// GenerateSummary は構築済みプロンプトから要約文を生成する。
func (c *AnthropicClient) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, 2048)
}

// generate はMessages APIを1回呼び出す。
func (c *AnthropicClient) generate(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic APIの呼び出しに失敗しました: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("Anthropic APIが空のレスポンスを返しました")
	}

	return resp.Content[0].Text, nil
}

// compile-time interface check
var _ Provider = (*AnthropicClient)(nil)
