// Package app はアプリケーションの起動とワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fbinsight/internal/ai"
	"github.com/hitoshi/fbinsight/internal/cache"
	"github.com/hitoshi/fbinsight/internal/config"
	"github.com/hitoshi/fbinsight/internal/database"
	"github.com/hitoshi/fbinsight/internal/feedback"
	"github.com/hitoshi/fbinsight/internal/handler"
	"github.com/hitoshi/fbinsight/internal/logger"
	"github.com/hitoshi/fbinsight/internal/metrics"
	"github.com/hitoshi/fbinsight/internal/middleware"
	"github.com/hitoshi/fbinsight/internal/repository"
	"github.com/hitoshi/fbinsight/internal/security"
	"github.com/hitoshi/fbinsight/internal/seed"
	"github.com/hitoshi/fbinsight/internal/summary"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("ai_provider", cfg.AIProvider),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	feedbackRepo := repository.NewPostgresFeedbackRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. AIプロバイダの初期化
	provider, err := ai.NewProvider(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	slog.Info("AI provider initialized", slog.String("provider", provider.Name()))

	// 5. 要約キャッシュの初期化（REDIS_URL未設定の場合は無効）
	var summaryCache summary.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewSummaryCache(cfg.RedisURL, cfg.SummaryCacheTTL, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialize summary cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		summaryCache = redisCache
		slog.Info("summary cache enabled")
	}

	// 6. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	feedbackService := feedback.NewService(
		feedbackRepo, provider, sanitizer, collector, slog.Default(),
		feedback.ServiceConfig{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
			ClassifyTimeout: cfg.ClassifyTimeout,
			RecentWindow:    cfg.RecentWindow,
		},
	)

	summaryService := summary.NewService(
		feedbackRepo, provider, summaryCache, collector, slog.Default(),
		summary.ServiceConfig{
			BatchLimit:       cfg.SummaryBatchLimit,
			SummarizeTimeout: cfg.SummarizeTimeout,
		},
	)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSummarize),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		StatusObserver:    collector,

		FeedbackService: feedbackService,
		SummaryService:  summaryService,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SummarizeTimeout + 15*time.Second, // 要約リクエストはAI呼び出し分長くかかる
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はサンプルフィードバックを投入する。
// AIプロバイダが初期化できる場合は投入時に感情分類も行う。
func runSeed(cfg *config.Config) error {
	ctx := context.Background()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	feedbackRepo := repository.NewPostgresFeedbackRepo(db)

	// プロバイダが構成されていない場合は分類なしで投入する
	var classifier seed.Classifier
	if provider, err := ai.NewProvider(ctx, cfg, slog.Default()); err != nil {
		slog.Warn("AI provider unavailable, seeding without classification", slog.String("error", err.Error()))
	} else {
		classifier = provider
	}

	seeder := seed.NewSeeder(feedbackRepo, classifier, slog.Default())
	return seeder.Run(ctx)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
