package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/fbinsight/internal/middleware"
	"github.com/hitoshi/fbinsight/internal/model"
)

// TestSummarize_ReturnsSummary は要約成功時のレスポンスをテストする。
func TestSummarize_ReturnsSummary(t *testing.T) {
	service := &mockSummaryService{
		summarizeFn: func(_ context.Context, spec *model.FilterSpec) (*model.SummaryResult, error) {
			if spec.Sentiment != model.SentimentNegative {
				t.Errorf("spec.Sentiment = %q, want negative", spec.Sentiment)
			}
			return &model.SummaryResult{
				Summary:            "Main complaints are crashes and battery drain.",
				FeedbackCount:      12,
				SentimentBreakdown: map[string]int{"negative": 12},
			}, nil
		},
	}
	router := newTestRouter(t, &mockFeedbackService{}, service)

	body := `{"sentiment": "negative"}`
	req := httptest.NewRequest(http.MethodPost, "/api/feedback/summarize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp model.SummaryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.FeedbackCount != 12 {
		t.Errorf("FeedbackCount = %d, want 12", resp.FeedbackCount)
	}
}

// TestSummarize_EmptyBodyMeansNoFilter はボディなしのリクエストが
// フィルタなしとして受け付けられることをテストする。
func TestSummarize_EmptyBodyMeansNoFilter(t *testing.T) {
	var gotSpec *model.FilterSpec
	service := &mockSummaryService{
		summarizeFn: func(_ context.Context, spec *model.FilterSpec) (*model.SummaryResult, error) {
			gotSpec = spec
			return &model.SummaryResult{Summary: "ok", FeedbackCount: 3}, nil
		},
	}
	router := newTestRouter(t, &mockFeedbackService{}, service)

	req := httptest.NewRequest(http.MethodPost, "/api/feedback/summarize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotSpec == nil || gotSpec.Search != "" || gotSpec.HasIDs() {
		t.Errorf("spec = %+v, want 空のフィルタ", gotSpec)
	}
}

// TestSummarize_ErrorStatusMapping はサービス層のエラーコードが
// 対応するHTTPステータスに変換されることをテストする。
func TestSummarize_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"対象0件", model.NewEmptyBatchError(), http.StatusUnprocessableEntity, model.ErrCodeEmptyBatch},
		{"プロバイダ障害", model.NewSummarizationUnavailableError(errors.New("down")), http.StatusBadGateway, model.ErrCodeSummarizationUnavailable},
		{"ストア障害", model.NewStoreUnavailableError(errors.New("down")), http.StatusServiceUnavailable, model.ErrCodeStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockSummaryService{
				summarizeFn: func(_ context.Context, _ *model.FilterSpec) (*model.SummaryResult, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, &mockFeedbackService{}, service)

			req := httptest.NewRequest(http.MethodPost, "/api/feedback/summarize", strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body middleware.ErrorResponseBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスの解析に失敗: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

// TestSummarize_InvalidFilterInBody はボディの不正なフィルタが400になることをテストする。
func TestSummarize_InvalidFilterInBody(t *testing.T) {
	router := newTestRouter(t, &mockFeedbackService{}, &mockSummaryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/feedback/summarize", strings.NewReader(`{"source": "telegraph"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
