package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	ri "github.com/redis/go-redis/v9"

	"FluentPro/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存 TTL，较短时间避免长期占用
	emptyValueTTL = 5 * time.Minute
	// TTL 随机抖动比例，防止同一批键同时过期
	ttlJitterRatio = 0.1
)

// ProtectedCache 带空值保护和过期抖动的缓存包装器
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
}

// NewProtectedCache 创建受保护的缓存实例
func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
	}
}

// Set 设置缓存，value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	cacheKey := redis.Key(pc.keyPrefix, key)

	if value == nil {
		return redis.Client().Set(ctx, cacheKey, emptyValueFlag, pc.emptyTTL).Err()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return redis.Client().Set(ctx, cacheKey, data, jitter(pc.ttl)).Err()
}

// Get 读取缓存。hit 为 true 且 empty 为 true 表示命中空值
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error) {
	cacheKey := redis.Key(pc.keyPrefix, key)

	data, err := redis.Client().Get(ctx, cacheKey).Result()
	if err != nil {
		if errors.Is(err, ri.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, false, nil
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

func jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := int64(float64(ttl) * ttlJitterRatio)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(spread))
}

// RecommendationProtectedCache 课程推荐记录的读缓存，worker 更新记录后删除
var RecommendationProtectedCache = NewProtectedCache("onboarding:recommendation", time.Hour)
