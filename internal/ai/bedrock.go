package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockClient はAWS Bedrock経由でClaudeモデルを呼び出すクライアント。
// 認証情報は環境変数またはIAMロールから解決される。
type BedrockClient struct {
	client *bedrockruntime.Client
	model  string
}

// NewBedrockClient はBedrockClientの新しいインスタンスを生成する。
func NewBedrockClient(ctx context.Context, region, model string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	return &BedrockClient{
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
	}, nil
}

// Name はプロバイダ名を返す。
func (c *BedrockClient) Name() string {
	return fmt.Sprintf("bedrock (%s)", c.model)
}

// --- BedrockのClaudeメッセージ形式 ---

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	Messages         []bedrockMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens"`
	AnthropicVersion string           `json:"anthropic_version"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockResponse struct {
	Content []bedrockContentBlock `json:"content"`
}

// ClassifySentiment はフィードバックテキストの感情ラベルを取得する。
func (c *BedrockClient) ClassifySentiment(ctx context.Context, text string) (string, error) {
	response, err := c.generate(ctx, buildClassifyPrompt(text), 32)
	if err != nil {
		return "", err
	}
	return extractLabel(response), nil
}

// GenerateSummary は構築済みプロンプトから要約文を生成する。
func (c *BedrockClient) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, 2048)
}

// generate はInvokeModelを1回呼び出す。
func (c *BedrockClient) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := bedrockRequest{
		Messages: []bedrockMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:        maxTokens,
		AnthropicVersion: "bedrock-2023-05-31",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Body:        jsonData,
	})
	if err != nil {
		return "", fmt.Errorf("Bedrock APIの呼び出しに失敗しました: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("Bedrock APIのレスポンスのパースに失敗しました: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("Bedrock APIが空のレスポンスを返しました")
	}

	return resp.Content[0].Text, nil
}

// compile-time interface check
var _ Provider = (*BedrockClient)(nil)
