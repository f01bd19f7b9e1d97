package database

import (
	"context"
	"fmt"
	"time"

	"ledger/config"

	"github.com/redis/go-redis/v9"
)

// 月度汇总缓存。redisClient 为 nil 时（未启用或未初始化）所有操作直接跳过，
// 数据库仍是唯一事实来源，缓存只是读路径的加速
var (
	redisClient *redis.Client
	cacheTTL    time.Duration
)

// InitCache 初始化 Redis 汇总缓存（可选）
func InitCache(cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		return nil
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheTTL = time.Duration(cfg.Redis.TTLSeconds) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient = nil
		return fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return nil
}

// CloseCache 关闭缓存连接
func CloseCache() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}

// SummaryCacheKey 按用户和月份生成缓存键
func SummaryCacheKey(userID uint, month time.Time) string {
	return fmt.Sprintf("ledger:summary:%d:%s", userID, month.Format("2006-01"))
}

// CacheGetSummary 读取缓存的月度汇总 JSON，未命中或未启用返回 ("", false)
func CacheGetSummary(ctx context.Context, key string) (string, bool) {
	if redisClient == nil {
		return "", false
	}
	val, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// CacheSetSummary 写入月度汇总 JSON，失败只当未缓存处理
func CacheSetSummary(ctx context.Context, key string, payload []byte) {
	if redisClient == nil {
		return
	}
	_ = redisClient.Set(ctx, key, payload, cacheTTL).Err()
}

// CacheInvalidateSummary 记录变更后失效对应用户/月份的汇总缓存
func CacheInvalidateSummary(ctx context.Context, userID uint, months ...time.Time) {
	if redisClient == nil {
		return
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		keys = append(keys, SummaryCacheKey(userID, m))
	}
	if len(keys) > 0 {
		_ = redisClient.Del(ctx, keys...).Err()
	}
}
