package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/fbinsight/internal/model"
)

// SummaryServiceInterface は要約ハンドラーが必要とするサービスインターフェース。
type SummaryServiceInterface interface {
	// Summarize はフィルタに一致するフィードバックのAI要約を生成する。
	Summarize(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error)
}

// SummaryHandler はAI要約のHTTPハンドラー。
type SummaryHandler struct {
	service SummaryServiceInterface
}

// NewSummaryHandler はSummaryHandlerを生成する。
func NewSummaryHandler(service SummaryServiceInterface) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// summarizeRequest は要約リクエストのボディ。
// feedback_idsが指定された場合、他のフィルタ条件はすべて無視される。
type summarizeRequest struct {
	Search      string  `json:"search,omitempty"`
	Source      string  `json:"source,omitempty"`
	Sentiment   string  `json:"sentiment,omitempty"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
	FeedbackIDs []int64 `json:"feedback_ids,omitempty"`
}

// Summarize はフィルタに一致するフィードバックのAI要約を生成する。
// POST /api/feedback/summarize
// ボディなしのリクエストはフィルタなし（全件から上限まで）として扱う。
func (h *SummaryHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "リクエストボディの解析に失敗しました。",
				Category: "validation",
				Action:   "正しいJSON形式でリクエストしてください。",
			})
			return
		}
	}

	spec, err := model.NewFilterSpec(model.FilterInput{
		Search:      req.Search,
		Source:      req.Source,
		Sentiment:   req.Sentiment,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		FeedbackIDs: req.FeedbackIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Summarize(r.Context(), spec)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
