package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Errには内部原因を保持し、ログ出力でのみ使用する（レスポンスには含めない）。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, feedback, ai, system
	Action   string // ユーザー向け対処方法
	Err      error  // 内部原因（ログ専用）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は内部原因を返す。errors.Is / errors.As で使用する。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation               = "VALIDATION_ERROR"
	ErrCodeFeedbackNotFound         = "FEEDBACK_NOT_FOUND"
	ErrCodeEmptyBatch               = "EMPTY_BATCH"
	ErrCodeSummarizationUnavailable = "SUMMARIZATION_UNAVAILABLE"
	ErrCodeStoreUnavailable         = "STORE_UNAVAILABLE"
)

// NewValidationError は入力検証エラーを生成する。
// fieldには問題のあったフィールド名を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s が不正です: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewFeedbackNotFoundError はフィードバック未検出エラーを生成する。
func NewFeedbackNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeFeedbackNotFound,
		Message:  fmt.Sprintf("指定されたフィードバックが見つかりません: %d", id),
		Category: "feedback",
		Action:   "フィードバックIDを確認してください。",
	}
}

// NewEmptyBatchError は要約対象が0件の場合のエラーを生成する。
// プロバイダ障害とは区別され、AIプロバイダは呼び出されない。
func NewEmptyBatchError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyBatch,
		Message:  "要約対象のフィードバックがありません。",
		Category: "feedback",
		Action:   "フィルタ条件を広げるか、対象のフィードバックIDを確認してください。",
	}
}

// NewSummarizationUnavailableError はAIプロバイダ障害による要約失敗エラーを生成する。
// 部分的な要約は決して返さず、原因はログにのみ記録する。
func NewSummarizationUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeSummarizationUnavailable,
		Message:  "要約の生成に失敗しました。",
		Category: "ai",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// NewStoreUnavailableError はレコードストア障害エラーを生成する。
// 現在のリクエストに対して致命的であり、サービス利用不可として扱う。
func NewStoreUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアへのアクセスに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}
