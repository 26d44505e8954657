package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// defaultGeminiEndpoint はGemini APIのベースエンドポイント。
const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient はGoogle Gemini APIのクライアント。
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewGeminiClient はGeminiClientの新しいインスタンスを生成する。
func NewGeminiClient(httpClient *http.Client, logger *slog.Logger, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		endpoint:   defaultGeminiEndpoint,
	}
}

// Name はプロバイダ名を返す。
func (c *GeminiClient) Name() string {
	return fmt.Sprintf("gemini (%s)", c.model)
}

// --- Gemini APIのワイヤ形式 ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// ClassifySentiment はフィードバックテキストの感情ラベルを取得する。
func (c *GeminiClient) ClassifySentiment(ctx context.Context, text string) (string, error) {
	response, err := c.generate(ctx, buildClassifyPrompt(text), 32)
	if err != nil {
		return "", err
	}
	return extractLabel(response), nil
}

// GenerateSummary は構築済みプロンプトから要約文を生成する。
func (c *GeminiClient) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, 2048)
}

// generate はGeminiのgenerateContentエンドポイントを1回呼び出す。
func (c *GeminiClient) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{MaxOutputTokens: maxTokens},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("Gemini APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("Gemini APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("Gemini APIのレスポンスのパースに失敗しました: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini APIが空のレスポンスを返しました")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// compile-time interface check
var _ Provider = (*GeminiClient)(nil)
