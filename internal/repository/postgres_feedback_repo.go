package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/fbinsight/internal/model"
)

// feedbackColumns はfeedbackテーブルのSELECT対象カラム。
const feedbackColumns = "id, text, source, sentiment, created_at, metadata"

// feedbackOrder は全取得経路で共通の決定的な並び順。
// created_at降順、同時刻はid降順。同一述語での再取得で順序が揺れないことを保証する。
const feedbackOrder = "ORDER BY created_at DESC, id DESC"

// PostgresFeedbackRepo はPostgreSQLを使用したフィードバックリポジトリ。
type PostgresFeedbackRepo struct {
	db *sql.DB
}

// NewPostgresFeedbackRepo はPostgresFeedbackRepoを生成する。
func NewPostgresFeedbackRepo(db *sql.DB) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: db}
}

// Insert は新規フィードバックを保存する。IDはデータベースが採番し、
// 作成日時はドラフトで未指定の場合のみデータベースが採番する。
func (r *PostgresFeedbackRepo) Insert(ctx context.Context, draft *model.FeedbackDraft) (*model.Feedback, error) {
	metadata, err := marshalMetadata(draft.Metadata)
	if err != nil {
		return nil, fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}

	fb := &model.Feedback{
		Text:      draft.Text,
		Source:    draft.Source,
		Sentiment: draft.Sentiment,
		Metadata:  draft.Metadata,
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO feedback (text, source, sentiment, metadata, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		 RETURNING id, created_at`,
		draft.Text, string(draft.Source), string(draft.Sentiment), metadata, draft.CreatedAt,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("フィードバックの保存に失敗しました: %w", err)
	}

	return fb, nil
}

// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedbackRepo) FindByID(ctx context.Context, id int64) (*model.Feedback, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`,
		id,
	)

	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードバックの取得に失敗しました: %w", err)
	}

	return fb, nil
}

// List はフィルタに一致するフィードバックをページネーション付きで返す。
// 全件数はCOUNT(*) OVER()でページ取得と同一クエリ内で数えるため、
// カウントとページの間に不整合の生じる余地がない。
// 結果が0行（ページが範囲外）の場合のみ、同一述語でのカウントを別途実行する。
func (r *PostgresFeedbackRepo) List(ctx context.Context, spec *model.FilterSpec, offset, limit int) ([]model.Feedback, int, error) {
	where, args := buildFilterWhere(spec)

	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) OVER() AS total FROM feedback %s %s OFFSET $%d LIMIT $%d`,
		feedbackColumns, where, feedbackOrder, len(args)+1, len(args)+2,
	)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("フィードバック一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.Feedback
	total := 0
	for rows.Next() {
		var fb model.Feedback
		var metadata []byte
		if err := rows.Scan(&fb.ID, &fb.Text, &fb.Source, &fb.Sentiment, &fb.CreatedAt, &metadata, &total); err != nil {
			return nil, 0, fmt.Errorf("フィードバック行の読み取りに失敗しました: %w", err)
		}
		if err := unmarshalMetadata(metadata, &fb); err != nil {
			return nil, 0, err
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("フィードバック一覧の走査に失敗しました: %w", err)
	}

	// ページが結果範囲外の場合、ウィンドウ関数では件数が得られないため別途数える
	if len(items) == 0 {
		countWhere, countArgs := buildFilterWhere(spec)
		countQuery := "SELECT COUNT(*) FROM feedback " + countWhere
		if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("フィードバック件数の取得に失敗しました: %w", err)
		}
	}

	return items, total, nil
}

// ListBounded はフィルタに一致するフィードバックをListと同じ順序でlimit件まで返す。
func (r *PostgresFeedbackRepo) ListBounded(ctx context.Context, spec *model.FilterSpec, limit int) ([]model.Feedback, error) {
	where, args := buildFilterWhere(spec)

	query := fmt.Sprintf(
		`SELECT %s FROM feedback %s %s LIMIT $%d`,
		feedbackColumns, where, feedbackOrder, len(args)+1,
	)
	args = append(args, limit)

	return r.queryFeedback(ctx, query, args...)
}

// FindByIDs は指定IDのフィードバックをListと同じ順序でlimit件まで返す。
// 存在しないIDはエラーにせず黙って落とす。
func (r *PostgresFeedbackRepo) FindByIDs(ctx context.Context, ids []int64, limit int) ([]model.Feedback, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT %s FROM feedback WHERE id = ANY($1) %s LIMIT $2`,
		feedbackColumns, feedbackOrder,
	)

	return r.queryFeedback(ctx, query, pq.Array(ids), limit)
}

// UpdateSentiment は指定フィードバックの感情ラベルを上書きする。
// レコードが存在しない場合はfalseを返す。
func (r *PostgresFeedbackRepo) UpdateSentiment(ctx context.Context, id int64, sentiment model.Sentiment) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE feedback SET sentiment = $2 WHERE id = $1`,
		id, string(sentiment),
	)
	if err != nil {
		return false, fmt.Errorf("感情ラベルの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// CountAll は全フィードバック件数を返す。
func (r *PostgresFeedbackRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("フィードバック件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountBySentiment は感情ラベルごとの件数を返す。
func (r *PostgresFeedbackRepo) CountBySentiment(ctx context.Context) (map[string]int, error) {
	return r.countGroupedBy(ctx, "sentiment")
}

// CountBySource は収集元ごとの件数を返す。
func (r *PostgresFeedbackRepo) CountBySource(ctx context.Context) (map[string]int, error) {
	return r.countGroupedBy(ctx, "source")
}

// CountSince はsince以降に作成されたフィードバック件数を返す。
func (r *PostgresFeedbackRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE created_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("直近フィードバック件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// countGroupedBy は指定カラムでGROUP BYした件数マップを返す。
// columnは呼び出し元が固定値のみを渡す（ユーザー入力は渡さない）。
func (r *PostgresFeedbackRepo) countGroupedBy(ctx context.Context, column string) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM feedback GROUP BY %s`, column, column)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s 別件数の取得に失敗しました: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("%s 別件数の読み取りに失敗しました: %w", column, err)
		}
		counts[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s 別件数の走査に失敗しました: %w", column, err)
	}

	return counts, nil
}

// queryFeedback はクエリを実行してフィードバックのスライスを返す。
func (r *PostgresFeedbackRepo) queryFeedback(ctx context.Context, query string, args ...interface{}) ([]model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("フィードバックの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []model.Feedback
	for rows.Next() {
		var fb model.Feedback
		var metadata []byte
		if err := rows.Scan(&fb.ID, &fb.Text, &fb.Source, &fb.Sentiment, &fb.CreatedAt, &metadata); err != nil {
			return nil, fmt.Errorf("フィードバック行の読み取りに失敗しました: %w", err)
		}
		if err := unmarshalMetadata(metadata, &fb); err != nil {
			return nil, err
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィードバックの走査に失敗しました: %w", err)
	}

	return items, nil
}

// buildFilterWhere はFilterSpecからWHERE句とバインド引数を構築する。
// FeedbackIDs指定時は他の述語を一切結合しない（ID指定が優先される）。
// specがnilまたは述語なしの場合は空のWHERE句を返す。
func buildFilterWhere(spec *model.FilterSpec) (string, []interface{}) {
	if spec == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}

	if spec.HasIDs() {
		args = append(args, pq.Array(spec.FeedbackIDs))
		return fmt.Sprintf("WHERE id = ANY($%d)", len(args)), args
	}

	if spec.Search != "" {
		args = append(args, "%"+spec.Search+"%")
		conds = append(conds, fmt.Sprintf("text ILIKE $%d", len(args)))
	}
	if spec.Source != "" {
		args = append(args, string(spec.Source))
		conds = append(conds, fmt.Sprintf("source = $%d", len(args)))
	}
	if spec.Sentiment != "" {
		args = append(args, string(spec.Sentiment))
		conds = append(conds, fmt.Sprintf("sentiment = $%d", len(args)))
	}
	if spec.StartDate != nil {
		args = append(args, *spec.StartDate)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if spec.EndDate != nil {
		args = append(args, *spec.EndDate)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// scanFeedback は単一行からFeedbackを読み取る。
func scanFeedback(row *sql.Row) (*model.Feedback, error) {
	fb := &model.Feedback{}
	var metadata []byte

	if err := row.Scan(&fb.ID, &fb.Text, &fb.Source, &fb.Sentiment, &fb.CreatedAt, &metadata); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadata, fb); err != nil {
		return nil, err
	}

	return fb, nil
}

// marshalMetadata はメタデータをJSONBカラム用にエンコードする。nilはNULLとして保存する。
func marshalMetadata(m map[string]any) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// unmarshalMetadata はJSONBカラムの値をデコードしてFeedbackに設定する。
func unmarshalMetadata(raw []byte, fb *model.Feedback) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &fb.Metadata); err != nil {
		return fmt.Errorf("メタデータのデコードに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FeedbackRepository = (*PostgresFeedbackRepo)(nil)
