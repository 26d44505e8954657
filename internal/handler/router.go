package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fbinsight/internal/middleware"
)

// HealthChecker はヘルスチェックに必要な依存先の疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver

	// サービス
	FeedbackService FeedbackServiceInterface
	SummaryService  SummaryServiceInterface

	// 運用系
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → CORS → RateLimit(General)
//
// 運用系ルート（/health、/metrics）はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	feedbackHandler := NewFeedbackHandler(deps.FeedbackService)
	summaryHandler := NewSummaryHandler(deps.SummaryService)

	// --- 運用系ルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/feedback", func(r chi.Router) {
			r.Get("/", feedbackHandler.ListFeedback)
			r.Post("/", feedbackHandler.CreateFeedback)
			r.Get("/stats", feedbackHandler.GetStats)

			// POST /api/feedback/summarize - AI要約（要約専用レート制限を追加）
			r.With(deps.RateLimiter.SummarizeMiddleware()).Post("/summarize", summaryHandler.Summarize)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", feedbackHandler.GetFeedback)
				r.Post("/reclassify", feedbackHandler.ReclassifyFeedback)
			})
		})
	})

	return r
}

// newHealthHandler はデータストアへの疎通を確認するヘルスチェックハンドラーを返す。
// 疎通に失敗した場合は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
