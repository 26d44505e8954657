// Package model はドメインモデルを定義する。
package model

import "time"

// Sentiment はフィードバックの感情分類ラベルを表す。
type Sentiment string

const (
	// SentimentPositive は肯定的なフィードバックを示す。
	SentimentPositive Sentiment = "positive"
	// SentimentNegative は否定的なフィードバックを示す。
	SentimentNegative Sentiment = "negative"
	// SentimentNeutral は中立的なフィードバックを示す。
	// 分類失敗時のフォールバック値としても使用される。
	SentimentNeutral Sentiment = "neutral"
)

// Valid はSentimentが定義済みラベルのいずれかであるかを返す。
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Source はフィードバックの収集元を表す。
type Source string

const (
	// SourceSupportTicket はサポートチケット経由のフィードバック。
	SourceSupportTicket Source = "support_ticket"
	// SourceSurvey はアンケート経由のフィードバック。
	SourceSurvey Source = "survey"
	// SourceAppStore はアプリストアレビュー経由のフィードバック。
	SourceAppStore Source = "app_store"
)

// Valid はSourceが定義済みの収集元のいずれかであるかを返す。
func (s Source) Valid() bool {
	switch s {
	case SourceSupportTicket, SourceSurvey, SourceAppStore:
		return true
	}
	return false
}

// Feedback は保存済みの顧客フィードバック1件を表す。
// IDとCreatedAtはストアが採番し、作成後は不変。
// Sentimentは作成時の分類（または再分類）でのみ設定され、
// 作成完了したレコードが空のSentimentを持つことはない。
type Feedback struct {
	ID        int64
	Text      string
	Source    Source
	Sentiment Sentiment
	CreatedAt time.Time
	Metadata  map[string]any // 任意のキーバリュー。コアは内容を解釈しない。
}

// FeedbackDraft は採番前のフィードバックを表す。
// Sentimentは分類後に設定された状態でリポジトリに渡される。
type FeedbackDraft struct {
	Text      string
	Source    Source
	Sentiment Sentiment
	Metadata  map[string]any
	CreatedAt *time.Time // nilの場合はストアが現在時刻を採番する
}

// Stats はコーパス全体の集計結果を表す。
// フィルタとは無関係に全レコードを対象とする。
type Stats struct {
	TotalFeedback   int
	SentimentCounts map[string]int // 出現したラベルのみ（ゼロ件は含まない）
	SourceCounts    map[string]int
	RecentCount     int // 直近ウィンドウ内の件数。呼び出し時刻に依存する。
}

// SummaryResult はAI要約の結果を表す。
// FeedbackCountとSentimentBreakdownは実際にプロバイダへ送信した
// バッチに対して計算されるため、常に FeedbackCount == 各カウントの合計 が成り立つ。
type SummaryResult struct {
	Summary            string         `json:"summary"`
	FeedbackCount      int            `json:"feedback_count"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
}
