// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fbinsight/internal/feedback"
	"github.com/hitoshi/fbinsight/internal/middleware"
	"github.com/hitoshi/fbinsight/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	// List はフィルタに一致するフィードバックをページネーション付きで返す。
	List(ctx context.Context, spec *model.FilterSpec, page, pageSize int) (*feedback.ListResult, error)
	// Get は指定IDのフィードバックを返す。
	Get(ctx context.Context, id int64) (*model.Feedback, error)
	// Create は新規フィードバックを作成し、感情分類を付与する。
	Create(ctx context.Context, text, source string, metadata map[string]any) (*model.Feedback, error)
	// Reclassify は既存フィードバックの感情ラベルを再分類する。
	Reclassify(ctx context.Context, id int64) (*model.Feedback, error)
	// Stats はコーパス全体の集計を返す。
	Stats(ctx context.Context) (*model.Stats, error)
}

// FeedbackHandler はフィードバック管理のHTTPハンドラー。
type FeedbackHandler struct {
	service FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(service FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// --- レスポンス型 ---

// feedbackResponse はフィードバック1件のレスポンス。
type feedbackResponse struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Sentiment string         `json:"sentiment"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// feedbackListResponse はフィードバック一覧のレスポンス。
type feedbackListResponse struct {
	Items    []feedbackResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// statsResponse は集計のレスポンス。
type statsResponse struct {
	TotalFeedback   int            `json:"total_feedback"`
	SentimentCounts map[string]int `json:"sentiment_counts"`
	SourceCounts    map[string]int `json:"source_counts"`
	RecentCount     int            `json:"recent_count"`
}

// createFeedbackRequest はフィードバック作成リクエストのボディ。
type createFeedbackRequest struct {
	Text     string         `json:"text"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListFeedback はフィルタ・ページネーション付きでフィードバック一覧を取得する。
// GET /api/feedback?search=&source=&sentiment=&start_date=&end_date=&page=&page_size=
func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	spec, err := model.NewFilterSpec(model.FilterInput{
		Search:    q.Get("search"),
		Source:    q.Get("source"),
		Sentiment: q.Get("sentiment"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	page, err := parsePositiveIntParam(q.Get("page"), 1)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("page", "正の整数を指定してください"))
		return
	}

	pageSize, err := parsePositiveIntParam(q.Get("page_size"), 0)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("page_size", "正の整数を指定してください"))
		return
	}

	result, err := h.service.List(r.Context(), spec, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]feedbackResponse, len(result.Items))
	for i, fb := range result.Items {
		items[i] = toFeedbackResponse(&fb)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feedbackListResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// GetFeedback はフィードバック1件を取得する。
// GET /api/feedback/:id
func (h *FeedbackHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("id", "数値のIDを指定してください"))
		return
	}

	fb, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFeedbackResponse(fb))
}

// CreateFeedback は新規フィードバックを作成する。
// POST /api/feedback
func (h *FeedbackHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	fb, err := h.service.Create(r.Context(), req.Text, req.Source, req.Metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFeedbackResponse(fb))
}

// ReclassifyFeedback はフィードバックの感情ラベルを再分類する。
// POST /api/feedback/:id/reclassify
func (h *FeedbackHandler) ReclassifyFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("id", "数値のIDを指定してください"))
		return
	}

	fb, err := h.service.Reclassify(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFeedbackResponse(fb))
}

// GetStats はコーパス全体の集計を取得する。
// GET /api/feedback/stats
func (h *FeedbackHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		TotalFeedback:   stats.TotalFeedback,
		SentimentCounts: stats.SentimentCounts,
		SourceCounts:    stats.SourceCounts,
		RecentCount:     stats.RecentCount,
	})
}

// toFeedbackResponse はドメインのFeedbackをhandlerのレスポンス型に変換する。
func toFeedbackResponse(fb *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:        fb.ID,
		Text:      fb.Text,
		Source:    string(fb.Source),
		Sentiment: string(fb.Sentiment),
		CreatedAt: fb.CreatedAt,
		Metadata:  fb.Metadata,
	}
}

// parseIDParam はURLパスの:idを数値IDとして解析する。
func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parsePositiveIntParam はクエリパラメータを正の整数として解析する。
// 空文字列の場合はフォールバック値を返す。
func parsePositiveIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("正の整数ではありません")
	}
	return v, nil
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeFeedbackNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmptyBatch:
		return http.StatusUnprocessableEntity
	case model.ErrCodeSummarizationUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
