package ai

import (
	"strings"
	"unicode/utf8"
)

// classifyMaxTextLength は分類プロンプトに含めるテキストの最大文字数。
// トークン上限とレイテンシを抑えるため、超過分は切り捨てる。
const classifyMaxTextLength = 1000

// classifySystemPrompt は感情分類の指示文。
// プロバイダ間で共通に使用し、応答は1語のみを期待する。
const classifySystemPrompt = `Analyze the sentiment of the following customer feedback.
Respond with ONLY one word: 'positive', 'negative', or 'neutral'.`

// buildClassifyPrompt は感情分類用のプロンプトを構築する。
func buildClassifyPrompt(text string) string {
	// マルチバイト文字を途中で分断しないよう、文字数単位で切り捨てる
	snippet := text
	if utf8.RuneCountInString(snippet) > classifyMaxTextLength {
		snippet = string([]rune(snippet)[:classifyMaxTextLength])
	}

	var sb strings.Builder
	sb.WriteString(classifySystemPrompt)
	sb.WriteString("\n\nFeedback: ")
	sb.WriteString(snippet)
	sb.WriteString("\n\nSentiment:")
	return sb.String()
}

// extractLabel はモデル応答から先頭の1語を取り出して正規化する。
// 引用符や句読点を除去し、小文字にして返す。
func extractLabel(response string) string {
	label := strings.TrimSpace(strings.ToLower(response))
	if idx := strings.IndexAny(label, " \t\n"); idx != -1 {
		label = label[:idx]
	}
	return strings.Trim(label, `'".,:`)
}
