package cache

import (
	"context"
	"errors"
	"time"

	ri "github.com/redis/go-redis/v9"

	"FluentPro/storage/redis"
)

const (
	tokenPrefix = "token"
)

// SetRefreshToken 记录有效的 refresh token（按 jti），TTL 与 token 过期时间一致
// Key: fpro:token:refresh:{jti}
func SetRefreshToken(ctx context.Context, jti, userID string, ttl time.Duration) error {
	key := redis.Key(tokenPrefix, "refresh", jti)
	return redis.Client().Set(ctx, key, userID, ttl).Err()
}

// ConsumeRefreshToken 原子地取出并删除 refresh token 记录，每个 jti 只能使用一次。
// 返回 token 所属的用户 ID，记录不存在时返回空字符串
func ConsumeRefreshToken(ctx context.Context, jti string) (string, error) {
	key := redis.Key(tokenPrefix, "refresh", jti)
	userID, err := redis.Client().GetDel(ctx, key).Result()
	if errors.Is(err, ri.Nil) {
		return "", nil
	}
	return userID, err
}

// DeleteRefreshToken 吊销 refresh token（登出）
func DeleteRefreshToken(ctx context.Context, jti string) error {
	key := redis.Key(tokenPrefix, "refresh", jti)
	return redis.Client().Del(ctx, key).Err()
}
