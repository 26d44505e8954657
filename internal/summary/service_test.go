package summary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
)

// --- テスト用モック ---

// mockBatchRepo はテスト用のFeedbackRepositoryモック。
// 要約サービスが使うメソッド以外はゼロ値を返す。
type mockBatchRepo struct {
	listBoundedFn func(ctx context.Context, spec *model.FilterSpec, limit int) ([]model.Feedback, error)
	findByIDsFn   func(ctx context.Context, ids []int64, limit int) ([]model.Feedback, error)
}

func (m *mockBatchRepo) Insert(_ context.Context, _ *model.FeedbackDraft) (*model.Feedback, error) {
	return nil, nil
}

func (m *mockBatchRepo) FindByID(_ context.Context, _ int64) (*model.Feedback, error) {
	return nil, nil
}

func (m *mockBatchRepo) List(_ context.Context, _ *model.FilterSpec, _, _ int) ([]model.Feedback, int, error) {
	return nil, 0, nil
}

func (m *mockBatchRepo) ListBounded(ctx context.Context, spec *model.FilterSpec, limit int) ([]model.Feedback, error) {
	if m.listBoundedFn != nil {
		return m.listBoundedFn(ctx, spec, limit)
	}
	return nil, nil
}

func (m *mockBatchRepo) FindByIDs(ctx context.Context, ids []int64, limit int) ([]model.Feedback, error) {
	if m.findByIDsFn != nil {
		return m.findByIDsFn(ctx, ids, limit)
	}
	return nil, nil
}

func (m *mockBatchRepo) UpdateSentiment(_ context.Context, _ int64, _ model.Sentiment) (bool, error) {
	return false, nil
}

func (m *mockBatchRepo) CountAll(_ context.Context) (int, error) { return 0, nil }

func (m *mockBatchRepo) CountBySentiment(_ context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *mockBatchRepo) CountBySource(_ context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *mockBatchRepo) CountSince(_ context.Context, _ time.Time) (int, error) { return 0, nil }

// mockSummarizer はテスト用のSummarizerモック。
type mockSummarizer struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockSummarizer) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "Users report crashes and praise dark mode.", nil
}

func (m *mockSummarizer) Name() string { return "mock" }

// mockCache はテスト用のCacheモック。
type mockCache struct {
	getFn  func(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error)
	setFn  func(ctx context.Context, spec *model.FilterSpec, result *model.SummaryResult) error
	stored *model.SummaryResult
}

func (m *mockCache) Get(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error) {
	if m.getFn != nil {
		return m.getFn(ctx, spec)
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, spec *model.FilterSpec, result *model.SummaryResult) error {
	if m.setFn != nil {
		return m.setFn(ctx, spec, result)
	}
	m.stored = result
	return nil
}

// noopSummaryMetrics はテスト用のMetricsRecorderモック。
type noopSummaryMetrics struct {
	failures []string
}

func (n *noopSummaryMetrics) RecordSummarySuccess(_ int) {}

func (n *noopSummaryMetrics) RecordSummaryFailure(reason string) {
	n.failures = append(n.failures, reason)
}

func (n *noopSummaryMetrics) RecordAILatency(_ string, _ time.Duration) {}

func newTestSummaryService(repo *mockBatchRepo, summarizer *mockSummarizer, c Cache) *Service {
	return NewService(
		repo, summarizer, c, &noopSummaryMetrics{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceConfig{BatchLimit: 50, SummarizeTimeout: time.Second},
	)
}

func sampleBatch(n int) []model.Feedback {
	sentiments := []model.Sentiment{model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral}
	items := make([]model.Feedback, n)
	for i := range items {
		items[i] = model.Feedback{
			ID:        int64(n - i),
			Text:      "feedback text",
			Source:    model.SourceSurvey,
			Sentiment: sentiments[i%3],
		}
	}
	return items
}

// --- Summarize テスト ---

// TestService_Summarize_EmptyBatch は対象0件がEMPTY_BATCHエラーになることをテストする。
func TestService_Summarize_EmptyBatch(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return nil, nil
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, nil)

	_, err := svc.Summarize(context.Background(), &model.FilterSpec{Search: "nothing matches"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyBatch {
		t.Errorf("error = %v, want EMPTY_BATCH", err)
	}
}

// TestService_Summarize_AppliesBatchLimit はバッチ上限がリポジトリまで伝わることをテストする。
func TestService_Summarize_AppliesBatchLimit(t *testing.T) {
	var gotLimit int
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, limit int) ([]model.Feedback, error) {
			gotLimit = limit
			return sampleBatch(3), nil
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, nil)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if gotLimit != 50 {
		t.Errorf("limit = %d, want 50", gotLimit)
	}
	if result.FeedbackCount != 3 {
		t.Errorf("FeedbackCount = %d, want 3", result.FeedbackCount)
	}
}

// TestService_Summarize_IDsTakePrecedence はfeedback_ids指定時に
// 他のフィルタ条件を無視してID取得が使われることをテストする。
func TestService_Summarize_IDsTakePrecedence(t *testing.T) {
	var gotIDs []int64
	listBoundedCalled := false
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			listBoundedCalled = true
			return nil, nil
		},
		findByIDsFn: func(_ context.Context, ids []int64, _ int) ([]model.Feedback, error) {
			gotIDs = ids
			return sampleBatch(2), nil
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, nil)

	spec := &model.FilterSpec{
		Search:      "this must be ignored",
		Sentiment:   model.SentimentNegative,
		FeedbackIDs: []int64{5, 9},
	}

	_, err := svc.Summarize(context.Background(), spec)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if listBoundedCalled {
		t.Error("feedback_ids指定時にListBoundedが呼ばれた")
	}
	if len(gotIDs) != 2 || gotIDs[0] != 5 || gotIDs[1] != 9 {
		t.Errorf("FindByIDs引数 = %v, want [5 9]", gotIDs)
	}
}

// TestService_Summarize_ProviderError はプロバイダ障害が
// SUMMARIZATION_UNAVAILABLEに変換されることをテストする。
func TestService_Summarize_ProviderError(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return sampleBatch(2), nil
		},
	}
	summarizer := &mockSummarizer{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	svc := newTestSummaryService(repo, summarizer, nil)

	_, err := svc.Summarize(context.Background(), &model.FilterSpec{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSummarizationUnavailable {
		t.Errorf("error = %v, want SUMMARIZATION_UNAVAILABLE", err)
	}
}

// TestService_Summarize_BlankSummary は空の要約応答もエラーになることをテストする。
func TestService_Summarize_BlankSummary(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return sampleBatch(1), nil
		},
	}
	summarizer := &mockSummarizer{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "   \n", nil
		},
	}
	svc := newTestSummaryService(repo, summarizer, nil)

	_, err := svc.Summarize(context.Background(), &model.FilterSpec{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSummarizationUnavailable {
		t.Errorf("error = %v, want SUMMARIZATION_UNAVAILABLE", err)
	}
}

// TestService_Summarize_BreakdownMatchesBatch は感情内訳がバッチそのものを
// 集計し、合計がfeedback_countと一致することをテストする。
func TestService_Summarize_BreakdownMatchesBatch(t *testing.T) {
	batch := sampleBatch(7) // positive 3, negative 2, neutral 2
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return batch, nil
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, nil)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	sum := 0
	for _, c := range result.SentimentBreakdown {
		sum += c
	}
	if sum != result.FeedbackCount {
		t.Errorf("内訳の合計 = %d, feedback_count = %d と一致しない", sum, result.FeedbackCount)
	}
	if result.SentimentBreakdown["positive"] != 3 {
		t.Errorf("positive = %d, want 3", result.SentimentBreakdown["positive"])
	}
}

// TestService_Summarize_BreakdownOmitsAbsentLabels はバッチに現れなかった
// 感情ラベルが内訳に含まれないことをテストする。
func TestService_Summarize_BreakdownOmitsAbsentLabels(t *testing.T) {
	batch := []model.Feedback{
		{ID: 1, Text: "love it", Source: model.SourceAppStore, Sentiment: model.SentimentPositive},
		{ID: 2, Text: "great update", Source: model.SourceAppStore, Sentiment: model.SentimentPositive},
	}
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return batch, nil
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, nil)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if result.SentimentBreakdown["positive"] != 2 {
		t.Errorf("positive = %d, want 2", result.SentimentBreakdown["positive"])
	}
	for _, absent := range []string{"negative", "neutral"} {
		if _, ok := result.SentimentBreakdown[absent]; ok {
			t.Errorf("内訳に現れないはずのラベル %q が含まれている", absent)
		}
	}
}

// TestService_Summarize_ProviderTimeout はプロバイダのタイムアウトが
// SUMMARIZATION_UNAVAILABLEに変換され、timeoutとして記録されることをテストする。
func TestService_Summarize_ProviderTimeout(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return sampleBatch(2), nil
		},
	}
	summarizer := &mockSummarizer{
		generateFn: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	metrics := &noopSummaryMetrics{}
	svc := NewService(
		repo, summarizer, nil, metrics,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceConfig{BatchLimit: 50, SummarizeTimeout: 10 * time.Millisecond},
	)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})

	if result != nil {
		t.Error("タイムアウト時に結果が返るべきではない")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSummarizationUnavailable {
		t.Fatalf("error = %v, want SUMMARIZATION_UNAVAILABLE", err)
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "timeout" {
		t.Errorf("failures = %v, want [timeout]", metrics.failures)
	}
}

// TestService_Summarize_CacheHit はキャッシュヒット時にプロバイダを呼ばないことをテストする。
func TestService_Summarize_CacheHit(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return sampleBatch(2), nil
		},
	}
	cached := &model.SummaryResult{Summary: "cached summary", FeedbackCount: 2}
	c := &mockCache{
		getFn: func(_ context.Context, _ *model.FilterSpec) (*model.SummaryResult, error) {
			return cached, nil
		},
	}
	providerCalled := false
	summarizer := &mockSummarizer{
		generateFn: func(_ context.Context, _ string) (string, error) {
			providerCalled = true
			return "fresh summary", nil
		},
	}
	svc := newTestSummaryService(repo, summarizer, c)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if providerCalled {
		t.Error("キャッシュヒット時にプロバイダが呼ばれた")
	}
	if result.Summary != "cached summary" {
		t.Errorf("Summary = %q, want キャッシュ済みの結果", result.Summary)
	}
}

// TestService_Summarize_CacheErrorDoesNotFail はキャッシュ障害が
// リクエストを失敗させないことをテストする。
func TestService_Summarize_CacheErrorDoesNotFail(t *testing.T) {
	repo := &mockBatchRepo{
		listBoundedFn: func(_ context.Context, _ *model.FilterSpec, _ int) ([]model.Feedback, error) {
			return sampleBatch(2), nil
		},
	}
	c := &mockCache{
		getFn: func(_ context.Context, _ *model.FilterSpec) (*model.SummaryResult, error) {
			return nil, errors.New("redis down")
		},
		setFn: func(_ context.Context, _ *model.FilterSpec, _ *model.SummaryResult) error {
			return errors.New("redis down")
		},
	}
	svc := newTestSummaryService(repo, &mockSummarizer{}, c)

	result, err := svc.Summarize(context.Background(), &model.FilterSpec{})
	if err != nil {
		t.Fatalf("Summarize() error = %v, キャッシュ障害は無視されるべき", err)
	}
	if !strings.Contains(result.Summary, "crashes") {
		t.Errorf("Summary = %q, プロバイダの応答が返っていない", result.Summary)
	}
}
