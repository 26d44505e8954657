// Package feedback はフィードバックの作成・検索・集計機能を提供する。
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
	"github.com/hitoshi/fbinsight/internal/repository"
)

// Classifier は感情分類に必要なAIプロバイダのインターフェース。
type Classifier interface {
	// ClassifySentiment はフィードバックテキストの感情ラベルを返す。
	ClassifySentiment(ctx context.Context, text string) (string, error)
	// Name はログ出力用のプロバイダ名を返す。
	Name() string
}

// Sanitizer はフィードバック本文のサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は分類メトリクスの記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordClassification(label string)
	RecordClassificationFallback(reason string)
	RecordAILatency(operation string, duration time.Duration)
}

// ServiceConfig はServiceの動作設定。
type ServiceConfig struct {
	DefaultPageSize int           // page_size未指定時の件数
	MaxPageSize     int           // page_sizeの上限（これを超える指定は切り詰める）
	ClassifyTimeout time.Duration // 分類呼び出しのタイムアウト
	RecentWindow    time.Duration // statsのrecent_countの対象ウィンドウ
}

// Service はフィードバックの作成・検索・集計のサービス。
type Service struct {
	repo       repository.FeedbackRepository
	classifier Classifier
	sanitizer  Sanitizer
	metrics    MetricsRecorder
	logger     *slog.Logger
	cfg        ServiceConfig

	now func() time.Time // テスト用に差し替え可能
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.FeedbackRepository,
	classifier Classifier,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
	logger *slog.Logger,
	cfg ServiceConfig,
) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		sanitizer:  sanitizer,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ListResult はListの戻り値。
type ListResult struct {
	Items    []model.Feedback
	Total    int
	Page     int
	PageSize int
}

// List はフィルタに一致するフィードバックをページネーション付きで返す。
// pageは1始まり。1未満は1として扱う。
// pageSizeは0以下でデフォルト値、上限超過で上限に切り詰める。
// 結果範囲外のページは空の一覧と正しいtotalを返す。
func (s *Service) List(ctx context.Context, spec *model.FilterSpec, page, pageSize int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	offset := (page - 1) * pageSize

	items, total, err := s.repo.List(ctx, spec, offset, pageSize)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	return &ListResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Get は指定IDのフィードバックを返す。見つからない場合はFEEDBACK_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Feedback, error) {
	fb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}
	if fb == nil {
		return nil, model.NewFeedbackNotFoundError(id)
	}
	return fb, nil
}

// Create は新規フィードバックを作成する。
// 入力検証 → 感情分類 → 保存 の順で処理し、分類の失敗は保存を妨げない。
// 作成完了したレコードは必ず有効なSentimentを持つ。
func (s *Service) Create(ctx context.Context, text, source string, metadata map[string]any) (*model.Feedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewValidationError("text", "本文が空です")
	}

	src := model.Source(source)
	if !src.Valid() {
		return nil, model.NewValidationError("source", "未知の収集元です: "+source)
	}

	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("text", "本文が空です")
	}

	sentiment := s.classify(ctx, text)

	fb, err := s.repo.Insert(ctx, &model.FeedbackDraft{
		Text:      text,
		Source:    src,
		Sentiment: sentiment,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	s.logger.Info("feedback created",
		slog.Int64("feedback_id", fb.ID),
		slog.String("source", string(fb.Source)),
		slog.String("sentiment", string(fb.Sentiment)),
	)

	return fb, nil
}

// Reclassify は既存フィードバックの感情ラベルを再分類して上書きする。
func (s *Service) Reclassify(ctx context.Context, id int64) (*model.Feedback, error) {
	fb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}
	if fb == nil {
		return nil, model.NewFeedbackNotFoundError(id)
	}

	sentiment := s.classify(ctx, fb.Text)

	updated, err := s.repo.UpdateSentiment(ctx, id, sentiment)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}
	if !updated {
		return nil, model.NewFeedbackNotFoundError(id)
	}

	s.logger.Info("feedback reclassified",
		slog.Int64("feedback_id", id),
		slog.String("sentiment", string(sentiment)),
	)

	fb.Sentiment = sentiment
	return fb, nil
}

// Stats はコーパス全体の集計を返す。
// アクティブなフィルタとは無関係に全レコードを対象とする。
// recent_countは呼び出し時刻を基準とした直近ウィンドウ内の件数。
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	sentimentCounts, err := s.repo.CountBySentiment(ctx)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	sourceCounts, err := s.repo.CountBySource(ctx)
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	recent, err := s.repo.CountSince(ctx, s.now().Add(-s.cfg.RecentWindow))
	if err != nil {
		return nil, model.NewStoreUnavailableError(err)
	}

	return &model.Stats{
		TotalFeedback:   total,
		SentimentCounts: sentimentCounts,
		SourceCounts:    sourceCounts,
		RecentCount:     recent,
	}, nil
}

// classify は感情分類を1回だけ試行し、確定した感情ラベルを返す。
// プロバイダ障害・タイムアウト・語彙外の応答はすべてneutralにフォールバックし、
// エラーは呼び出し元に伝播させない（作成の成功を分類より優先する）。
func (s *Service) classify(ctx context.Context, text string) model.Sentiment {
	classifyCtx, cancel := context.WithTimeout(ctx, s.cfg.ClassifyTimeout)
	defer cancel()

	start := time.Now()
	label, err := s.classifier.ClassifySentiment(classifyCtx, text)
	s.metrics.RecordAILatency("classify", time.Since(start))

	if err != nil {
		s.logger.Warn("sentiment classification failed, falling back to neutral",
			slog.String("provider", s.classifier.Name()),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordClassificationFallback("provider_error")
		return model.SentimentNeutral
	}

	sentiment := model.Sentiment(label)
	if !sentiment.Valid() {
		s.logger.Warn("classifier returned out-of-vocabulary label, falling back to neutral",
			slog.String("provider", s.classifier.Name()),
			slog.String("label", label),
		)
		s.metrics.RecordClassificationFallback("invalid_label")
		return model.SentimentNeutral
	}

	s.metrics.RecordClassification(label)
	return sentiment
}
