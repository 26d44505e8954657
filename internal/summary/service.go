// Package summary はフィルタ済みフィードバック集合のAI要約機能を提供する。
package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
	"github.com/hitoshi/fbinsight/internal/repository"
)

// Summarizer は要約生成に必要なAIプロバイダのインターフェース。
type Summarizer interface {
	GenerateSummary(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Cache は要約結果のキャッシュインターフェース。実装はオプション（nil可）。
type Cache interface {
	// Get はキャッシュ済みの要約結果を返す。未ヒットの場合は (nil, nil)。
	Get(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error)
	Set(ctx context.Context, spec *model.FilterSpec, result *model.SummaryResult) error
}

// MetricsRecorder は要約メトリクスの記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordSummarySuccess(batchSize int)
	RecordSummaryFailure(reason string)
	RecordAILatency(operation string, duration time.Duration)
}

// ServiceConfig はServiceの動作設定。
type ServiceConfig struct {
	BatchLimit       int           // 1回の要約に含める最大件数
	SummarizeTimeout time.Duration // 要約呼び出しのタイムアウト
}

// Service はフィードバック要約のサービス。
type Service struct {
	repo       repository.FeedbackRepository
	summarizer Summarizer
	cache      Cache // nilの場合はキャッシュ無効
	metrics    MetricsRecorder
	logger     *slog.Logger
	cfg        ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。cacheはnil可。
func NewService(
	repo repository.FeedbackRepository,
	summarizer Summarizer,
	cache Cache,
	metrics MetricsRecorder,
	logger *slog.Logger,
	cfg ServiceConfig,
) *Service {
	return &Service{
		repo:       repo,
		summarizer: summarizer,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Summarize はフィルタに一致するフィードバックを収集してAI要約を生成する。
// feedback_ids指定時はIDによる取得が他のすべてのフィルタ条件より優先される。
// 対象件数は設定上限まで（超過分は新しい順で切り詰め）。
// 対象が0件の場合はEMPTY_BATCHエラーを返す。
func (s *Service) Summarize(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error) {
	items, err := s.collectBatch(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.NewEmptyBatchError()
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, spec); err != nil {
			s.logger.Warn("summary cache lookup failed", slog.String("error", err.Error()))
		} else if cached != nil {
			s.logger.Debug("summary cache hit", slog.Int("feedback_count", cached.FeedbackCount))
			return cached, nil
		}
	}

	prompt := buildSummaryPrompt(items, spec)

	summarizeCtx, cancel := context.WithTimeout(ctx, s.cfg.SummarizeTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.summarizer.GenerateSummary(summarizeCtx, prompt)
	s.metrics.RecordAILatency("summarize", time.Since(start))

	if err != nil {
		s.logger.Error("summary generation failed",
			slog.String("provider", s.summarizer.Name()),
			slog.Int("batch_size", len(items)),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordSummaryFailure(failureReason(err))
		return nil, model.NewSummarizationUnavailableError(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.RecordSummaryFailure("empty_response")
		return nil, model.NewSummarizationUnavailableError(errors.New("プロバイダが空の要約を返しました"))
	}

	result := &model.SummaryResult{
		Summary:            text,
		FeedbackCount:      len(items),
		SentimentBreakdown: tallySentiments(items),
	}

	s.metrics.RecordSummarySuccess(len(items))
	s.logger.Info("summary generated",
		slog.String("provider", s.summarizer.Name()),
		slog.Int("feedback_count", len(items)),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, spec, result); err != nil {
			s.logger.Warn("summary cache store failed", slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// collectBatch は要約対象のフィードバックを上限件数まで収集する。
func (s *Service) collectBatch(ctx context.Context, spec *model.FilterSpec) ([]model.Feedback, error) {
	if spec != nil && spec.HasIDs() {
		items, err := s.repo.FindByIDs(ctx, spec.FeedbackIDs, s.cfg.BatchLimit)
		if err != nil {
			return nil, model.NewStoreUnavailableError(err)
		}
		return items, nil
	}

	items, err := s.repo.ListBounded(ctx, spec, s.cfg.BatchLimit)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}
	return items, nil
}

// tallySentiments は要約対象バッチそのものの感情内訳を集計する。
// 全体の統計値ではなく、実際に要約に含めたレコードのみを数える。
// バッチに現れなかったラベルは内訳に含めない。
func tallySentiments(items []model.Feedback) map[string]int {
	breakdown := make(map[string]int)
	for _, fb := range items {
		breakdown[string(fb.Sentiment)]++
	}
	return breakdown
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "provider_error"
}
