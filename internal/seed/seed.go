// Package seed は開発・デモ用のサンプルフィードバック投入を提供する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hitoshi/fbinsight/internal/model"
	"github.com/hitoshi/fbinsight/internal/repository"
)

// sampleEntry はシード用のフィードバック1件。
type sampleEntry struct {
	text   string
	source model.Source
}

// sampleFeedback は投入するサンプルコーパス。
var sampleFeedback = []sampleEntry{
	{"The app crashes every time I try to upload a photo. This is really frustrating and I've lost several important images.", model.SourceAppStore},
	{"Love the new dark mode feature! It's much easier on the eyes during night time use.", model.SourceSurvey},
	{"I've been waiting for customer support response for 3 days now. The ticket #12345 is still unresolved.", model.SourceSupportTicket},
	{"The search functionality is broken. When I search for 'settings', nothing comes up even though I know it exists.", model.SourceAppStore},
	{"Great update! The performance improvements are noticeable. The app feels much faster now.", model.SourceSurvey},
	{"I can't log in to my account. I've reset my password three times but still getting authentication errors.", model.SourceSupportTicket},
	{"The UI is clean and intuitive. Really enjoying the user experience so far.", model.SourceAppStore},
	{"Battery drain is terrible after the latest update. My phone battery used to last all day, now it's dead by 2pm.", model.SourceAppStore},
	{"The onboarding process was smooth and helpful. I understood all the features quickly.", model.SourceSurvey},
	{"Feature request: Can we add the ability to export data to CSV? This would be really helpful for my workflow.", model.SourceSupportTicket},
	{"The app freezes when I try to sync my data. I have to force close and restart multiple times.", model.SourceAppStore},
	{"Excellent customer service! The support team resolved my issue within hours.", model.SourceSurvey},
	{"Notifications are not working. I'm not receiving any alerts even though they're enabled in settings.", model.SourceSupportTicket},
	{"The new design is beautiful! Much more modern and professional looking.", model.SourceAppStore},
	{"I'm experiencing data loss. Some of my saved items disappeared after the update. This is unacceptable.", model.SourceSupportTicket},
	{"The tutorial videos are very helpful. They made it easy to get started with the app.", model.SourceSurvey},
	{"The app takes forever to load. Sometimes I wait 30 seconds just to see the home screen.", model.SourceAppStore},
	{"I love how customizable the dashboard is. I can arrange everything exactly how I want it.", model.SourceSurvey},
	{"The payment processing failed multiple times. I tried different cards but none worked. Very frustrating.", model.SourceSupportTicket},
	{"The offline mode works perfectly! I can access my data even without internet connection.", model.SourceAppStore},
	{"The app is too complicated. There are too many features and I can't find what I need.", model.SourceSurvey},
	{"Privacy concerns: I noticed the app is requesting location access even when not needed. Why?", model.SourceSupportTicket},
	{"The collaboration features are amazing! My team can work together seamlessly now.", model.SourceAppStore},
	{"The app keeps logging me out. I have to sign in every single time I open it.", model.SourceSupportTicket},
	{"The price is too high for what you get. There are free alternatives that do the same thing.", model.SourceSurvey},
	{"The integration with other tools is seamless. It saved me hours of manual work.", model.SourceAppStore},
	{"I'm getting spam notifications. Please add an option to filter or disable certain types of alerts.", model.SourceSupportTicket},
	{"The documentation is comprehensive and well-written. I found answers to all my questions.", model.SourceSurvey},
	{"The app is slow and laggy on my older device. Please optimize for lower-end phones.", model.SourceAppStore},
	{"The new feature you added is exactly what I needed! Thank you for listening to user feedback.", model.SourceSurvey},
}

// Classifier はシード時の感情分類に使用するインターフェース。
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (string, error)
}

// Seeder はサンプルフィードバックをデータストアに投入する。
type Seeder struct {
	repo       repository.FeedbackRepository
	classifier Classifier // nilの場合は全件neutralで投入
	logger     *slog.Logger
}

// NewSeeder はSeederを生成する。classifierはnil可。
func NewSeeder(repo repository.FeedbackRepository, classifier Classifier, logger *slog.Logger) *Seeder {
	return &Seeder{
		repo:       repo,
		classifier: classifier,
		logger:     logger,
	}
}

// Run はサンプルコーパスを投入する。
// 既存データがある場合はスキップする（冪等）。
// 各レコードには直近30日に分散したランダムな作成日時を付与する。
func (s *Seeder) Run(ctx context.Context) error {
	existing, err := s.repo.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("既存データの確認に失敗しました: %w", err)
	}
	if existing > 0 {
		s.logger.Info("seed skipped, database already contains feedback", slog.Int("existing_count", existing))
		return nil
	}

	now := time.Now().UTC()
	inserted := 0

	for _, entry := range sampleFeedback {
		sentiment := s.classify(ctx, entry.text)

		// 直近30日に分散させる
		daysAgo := rand.Intn(31)
		hoursAgo := rand.Intn(24)
		seededAt := now.Add(-time.Duration(daysAgo)*24*time.Hour - time.Duration(hoursAgo)*time.Hour)

		_, err := s.repo.Insert(ctx, &model.FeedbackDraft{
			Text:      entry.text,
			Source:    entry.source,
			Sentiment: sentiment,
			Metadata:  map[string]any{"seeded": true},
			CreatedAt: &seededAt,
		})
		if err != nil {
			return fmt.Errorf("サンプルデータの投入に失敗しました: %w", err)
		}
		inserted++
	}

	s.logger.Info("seed completed", slog.Int("inserted", inserted))
	return nil
}

// classify はシード対象テキストを分類する。失敗・語彙外の応答はneutralにフォールバックする。
func (s *Seeder) classify(ctx context.Context, text string) model.Sentiment {
	if s.classifier == nil {
		return model.SentimentNeutral
	}

	label, err := s.classifier.ClassifySentiment(ctx, text)
	if err != nil {
		s.logger.Warn("seed classification failed, falling back to neutral", slog.String("error", err.Error()))
		return model.SentimentNeutral
	}

	sentiment := model.Sentiment(label)
	if !sentiment.Valid() {
		return model.SentimentNeutral
	}
	return sentiment
}
