package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient はOpenAI Chat Completions APIのクライアント。
type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIClient はOpenAIClientの新しいインスタンスを生成する。
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		client: &client,
		model:  openai.ChatModel(model),
	}
}

// Name はプロバイダ名を返す。
func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("openai (%s)", c.model)
}

// ClassifySentiment はフィードバックテキストの感情ラベルを取得する。
func (c *OpenAIClient) ClassifySentiment(ctx context.Context, text string) (string, error) {
	response, err := c.generate(ctx, buildClassifyPrompt(text))
	if err != nil {
		return "", err
	}
	return extractLabel(response), nil
}

// GenerateSummary は構築済みプロンプトから要約文を生成する。
func (c *OpenAIClient) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}

// generate はChat Completions APIを1回呼び出す。
func (c *OpenAIClient) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI APIの呼び出しに失敗しました: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI APIが空のレスポンスを返しました")
	}

	return resp.Choices[0].Message.Content, nil
}

// compile-time interface check
var _ Provider = (*OpenAIClient)(nil)
