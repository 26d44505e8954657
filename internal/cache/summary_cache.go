// Package cache はRedisを使った要約結果のキャッシュを提供する。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/fbinsight/internal/model"
)

const keyPrefix = "fbinsight:summary:"

// SummaryCache はフィルタ条件をキーとして要約結果をRedisに保持する。
// 同一のフィルタ条件に対する連続した要約リクエストでAI呼び出しを省略する。
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSummaryCache はRedis接続URLからSummaryCacheを生成する。
func NewSummaryCache(redisURL string, ttl time.Duration, logger *slog.Logger) (*SummaryCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("Redis URLの解析に失敗しました: %w", err)
	}

	return &SummaryCache{
		client: redis.NewClient(opt),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Ping はRedisへの疎通を確認する。
func (c *SummaryCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redisへの接続に失敗しました: %w", err)
	}
	return nil
}

// Close はRedis接続を閉じる。
func (c *SummaryCache) Close() error {
	return c.client.Close()
}

// Get はフィルタ条件に対応するキャッシュ済み要約を返す。未ヒットの場合は (nil, nil)。
func (c *SummaryCache) Get(ctx context.Context, spec *model.FilterSpec) (*model.SummaryResult, error) {
	key, err := keyFor(spec)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("キャッシュの取得に失敗しました: %w", err)
	}

	var result model.SummaryResult
	if err := json.Unmarshal(data, &result); err != nil {
		// 壊れたエントリはヒットなし扱いにして上書きさせる
		c.logger.Warn("discarding corrupt summary cache entry", slog.String("key", key))
		return nil, nil
	}
	return &result, nil
}

// Set はフィルタ条件に対応する要約結果をTTL付きで保存する。
func (c *SummaryCache) Set(ctx context.Context, spec *model.FilterSpec, result *model.SummaryResult) error {
	key, err := keyFor(spec)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("要約結果のシリアライズに失敗しました: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュの保存に失敗しました: %w", err)
	}
	return nil
}

// keyFor はフィルタ条件の正規化JSON表現のハッシュからキャッシュキーを導出する。
// 値として等しいフィルタ条件は同じキーに写る。
func keyFor(spec *model.FilterSpec) (string, error) {
	if spec == nil {
		spec = &model.FilterSpec{}
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("フィルタ条件のシリアライズに失敗しました: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}
