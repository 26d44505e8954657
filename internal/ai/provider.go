// Package ai は外部AIプロバイダとの連携機能を提供する。
// 感情分類と要約生成の2つの呼び出しを、複数プロバイダ
// （Gemini、Anthropic、OpenAI、AWS Bedrock）に対して統一インターフェースで扱う。
// いずれの呼び出しも単発のリクエスト/レスポンスであり、
// タイムアウトは呼び出し元がcontextで制御する。
package ai

import "context"

// Provider はAIプロバイダの統一インターフェース。
type Provider interface {
	// ClassifySentiment はフィードバックテキストの感情ラベルを返す。
	// 戻り値は小文字の生ラベルであり、語彙の検証は呼び出し元が行う。
	ClassifySentiment(ctx context.Context, text string) (string, error)

	// GenerateSummary は構築済みプロンプトから要約文を生成する。
	GenerateSummary(ctx context.Context, prompt string) (string, error)

	// Name はログ出力用のプロバイダ名を返す。
	Name() string
}
