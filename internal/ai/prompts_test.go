package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestBuildClassifyPrompt_TruncatesLongText は長いテキストが
// 上限で切り詰められることをテストする。
func TestBuildClassifyPrompt_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", classifyMaxTextLength+500)

	prompt := buildClassifyPrompt(long)

	if strings.Count(prompt, "a") != classifyMaxTextLength {
		t.Errorf("テキストが%d文字に切り詰められていない", classifyMaxTextLength)
	}
	if !strings.HasSuffix(prompt, "Sentiment:") {
		t.Error("プロンプトがSentiment:で終わっていない")
	}
}

// TestBuildClassifyPrompt_TruncatesOnRuneBoundary はマルチバイトテキストの
// 切り詰めが文字数単位で行われ、文字が分断されないことをテストする。
func TestBuildClassifyPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("あ", classifyMaxTextLength+100)

	prompt := buildClassifyPrompt(long)

	if !utf8.ValidString(prompt) {
		t.Error("プロンプトが不正なUTF-8を含んでいる")
	}
	if strings.Count(prompt, "あ") != classifyMaxTextLength {
		t.Errorf("テキストが%d文字に切り詰められていない", classifyMaxTextLength)
	}
	if !strings.HasSuffix(prompt, "Sentiment:") {
		t.Error("プロンプトがSentiment:で終わっていない")
	}
}

// TestBuildClassifyPrompt_IncludesInstruction は指示文と本文が含まれることをテストする。
func TestBuildClassifyPrompt_IncludesInstruction(t *testing.T) {
	prompt := buildClassifyPrompt("The app is great.")

	if !strings.Contains(prompt, "Respond with ONLY one word") {
		t.Error("指示文が含まれていない")
	}
	if !strings.Contains(prompt, "Feedback: The app is great.") {
		t.Error("フィードバック本文が含まれていない")
	}
}

// TestExtractLabel はモデル応答の正規化をテストする。
func TestExtractLabel(t *testing.T) {
	tests := []struct {
		response string
		want     string
	}{
		{"positive", "positive"},
		{"Negative", "negative"},
		{"  neutral  ", "neutral"},
		{"'positive'", "positive"},
		{"negative.", "negative"},
		{"Positive. The user seems happy.", "positive"},
		{"NEUTRAL\n", "neutral"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractLabel(tt.response); got != tt.want {
			t.Errorf("extractLabel(%q) = %q, want %q", tt.response, got, tt.want)
		}
	}
}
