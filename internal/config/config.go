// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// AI Provider
	AIProvider      string // gemini, anthropic, openai, bedrock
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	BedrockRegion   string
	BedrockModel    string

	// AI呼び出しのタイムアウト。
	// 分類はレコード作成リクエストの時間予算内で完了する必要があるため、要約より短い。
	ClassifyTimeout  time.Duration
	SummarizeTimeout time.Duration

	// Query
	DefaultPageSize   int
	MaxPageSize       int
	SummaryBatchLimit int           // AIプロバイダへ送るバッチの上限件数
	RecentWindow      time.Duration // statsのrecent_countの対象ウィンドウ

	// Rate Limit
	RateLimitGeneral   int // req/min/IP
	RateLimitSummarize int // req/min/IP（AI要約呼び出し専用）

	// Cache（REDIS_URL未設定の場合、要約キャッシュは無効）
	RedisURL        string
	SummaryCacheTTL time.Duration

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// AIプロバイダのAPIキーはプロバイダ構築時に検証される。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AIProvider = getEnvString("AI_PROVIDER", "gemini")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.AnthropicModel = getEnvString("ANTHROPIC_MODEL", "claude-sonnet-4-5")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.BedrockRegion = getEnvString("BEDROCK_REGION", "us-east-1")
	cfg.BedrockModel = getEnvString("BEDROCK_MODEL", "anthropic.claude-3-5-sonnet-20241022-v2:0")

	cfg.ClassifyTimeout = getEnvDuration("CLASSIFY_TIMEOUT", 10*time.Second)
	cfg.SummarizeTimeout = getEnvDuration("SUMMARIZE_TIMEOUT", 30*time.Second)

	cfg.DefaultPageSize = getEnvInt("DEFAULT_PAGE_SIZE", 20)
	cfg.MaxPageSize = getEnvInt("MAX_PAGE_SIZE", 100)
	cfg.SummaryBatchLimit = getEnvInt("SUMMARY_BATCH_LIMIT", 50)
	cfg.RecentWindow = getEnvDuration("RECENT_WINDOW", 7*24*time.Hour)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSummarize = getEnvInt("RATE_LIMIT_SUMMARIZE", 10)

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.SummaryCacheTTL = getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
