// Package repository はデータ永続化層のインターフェースと実装を提供する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
)

// FeedbackRepository はフィードバックレコードの永続化操作を定義する。
// すべての読み取りは単一ラウンドトリップであり、読み取り同士の調整は不要。
type FeedbackRepository interface {
	// Insert は新規フィードバックを保存し、IDと作成日時が採番されたレコードを返す。
	Insert(ctx context.Context, draft *model.FeedbackDraft) (*model.Feedback, error)

	// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Feedback, error)

	// List はフィルタに一致するフィードバックをページネーション付きで返す。
	// 順序は created_at 降順、同時刻は id 降順で安定している。
	// totalはoffset/limitに関係なく、ページと同一の述語で数えた全件数を返す。
	List(ctx context.Context, spec *model.FilterSpec, offset, limit int) (items []model.Feedback, total int, err error)

	// ListBounded はフィルタに一致するフィードバックをListと同じ順序でlimit件まで返す。
	// 要約エンジンのバッチ解決専用。
	ListBounded(ctx context.Context, spec *model.FilterSpec, limit int) ([]model.Feedback, error)

	// FindByIDs は指定IDのフィードバックをListと同じ順序でlimit件まで返す。
	// 存在しないIDはエラーにせず黙って落とす。
	FindByIDs(ctx context.Context, ids []int64, limit int) ([]model.Feedback, error)

	// UpdateSentiment は指定フィードバックの感情ラベルを上書きする。
	// 再分類パス専用。レコードが存在しない場合はfalseを返す。
	UpdateSentiment(ctx context.Context, id int64, sentiment model.Sentiment) (bool, error)

	// CountAll は全フィードバック件数を返す。
	CountAll(ctx context.Context) (int, error)

	// CountBySentiment は感情ラベルごとの件数を返す。0件のラベルは含まない。
	CountBySentiment(ctx context.Context) (map[string]int, error)

	// CountBySource は収集元ごとの件数を返す。0件の収集元は含まない。
	CountBySource(ctx context.Context) (map[string]int, error)

	// CountSince はsince以降に作成されたフィードバック件数を返す。
	CountSince(ctx context.Context, since time.Time) (int, error)
}
