package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
)

const summaryPromptHeader = `You are analyzing customer feedback for a product team.
Summarize the key themes, complaints, and positive feedback from the following customer feedback entries.
Be concise but comprehensive. Focus on actionable insights.`

// buildSummaryPrompt は要約対象のフィードバック一覧からLLMプロンプトを組み立てる。
// アクティブなフィルタ条件はコンテキスト行としてプロンプトに含める。
func buildSummaryPrompt(items []model.Feedback, spec *model.FilterSpec) string {
	var b strings.Builder
	b.WriteString(summaryPromptHeader)
	b.WriteString("\n")

	if ctx := buildContextLines(spec); ctx != "" {
		b.WriteString(ctx)
	}

	b.WriteString("\nFeedback entries:\n")
	for i, fb := range items {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "Feedback %d [source=%s, sentiment=%s]:\n%s\n", i+1, fb.Source, fb.Sentiment, fb.Text)
	}

	b.WriteString("\nSummary:")
	return b.String()
}

// buildContextLines はフィルタ条件をプロンプト用のコンテキスト行に整形する。
func buildContextLines(spec *model.FilterSpec) string {
	if spec == nil {
		return ""
	}

	var b strings.Builder
	if spec.StartDate != nil || spec.EndDate != nil {
		fmt.Fprintf(&b, "Date range: %s to %s\n", formatDateBound(spec.StartDate), formatDateBound(spec.EndDate))
	}
	if spec.Source != "" {
		fmt.Fprintf(&b, "Source filter: %s\n", spec.Source)
	}
	if spec.Sentiment != "" {
		fmt.Fprintf(&b, "Sentiment filter: %s\n", spec.Sentiment)
	}
	if spec.Search != "" {
		fmt.Fprintf(&b, "Search keyword: %s\n", spec.Search)
	}
	return b.String()
}

func formatDateBound(t *time.Time) string {
	if t == nil {
		return "unbounded"
	}
	return t.Format("2006-01-02")
}
