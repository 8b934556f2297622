package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appconfig "FluentPro/config"
	"FluentPro/pkg/errors"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/response"
	"FluentPro/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	KeyPrefix string
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 超限后封禁时长（秒），0 表示不封禁
	BlockDuration int
	// 按用户限流，需要放在鉴权之后
	ByUserID bool
	ByIP     bool
}

// AuthRateLimitConfig 注册、登录按 IP 限流
var AuthRateLimitConfig = RateLimitConfig{
	KeyPrefix:     "auth:rate",
	Window:        60,
	MaxRequests:   10,
	BlockDuration: 900,
	ByIP:          true,
}

// OnboardingRateLimitConfig 引导接口按用户限流，角色匹配和课程推荐会调用外部服务
var OnboardingRateLimitConfig = RateLimitConfig{
	KeyPrefix:   "onboarding:rate",
	Window:      60,
	MaxRequests: 60,
	ByUserID:    true,
	ByIP:        true,
}

// RateLimiter 基于 Redis ZSET 的滑动窗口限流
type RateLimiter struct {
	config RateLimitConfig
	client redislib.Cmdable
}

func NewRateLimiter(config RateLimitConfig, client redislib.Cmdable) *RateLimiter {
	return &RateLimiter{config: config, client: client}
}

// identity 限流主体，用户优先，没有用户时退回 IP
func (rl *RateLimiter) identity(ctx context.Context, c *app.RequestContext) string {
	if rl.config.ByUserID {
		if userID, ok := GetUserID(ctx, c); ok {
			return "user:" + userID
		}
	}
	if rl.config.ByIP {
		return "ip:" + c.ClientIP()
	}
	return "global"
}

// Allow 记录本次请求并返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, id string, now time.Time) (bool, int, error) {
	key := redis.Key(rl.config.KeyPrefix, id)
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(card.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) blockKey(id string) string {
	return redis.Key(rl.config.KeyPrefix, "block", id)
}

func (rl *RateLimiter) Block(ctx context.Context, id string) error {
	if rl.config.BlockDuration <= 0 {
		return nil
	}
	return rl.client.Set(ctx, rl.blockKey(id), "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, id string) (bool, error) {
	if rl.config.BlockDuration <= 0 {
		return false, nil
	}
	n, err := rl.client.Exists(ctx, rl.blockKey(id)).Result()
	return n > 0, err
}

// RateLimitMiddleware 创建限流中间件。Redis 不可用时放行，只记录日志
func RateLimitMiddleware(config RateLimitConfig) app.HandlerFunc {
	if !appconfig.Cfg.RateLimitEnabled {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	return func(ctx context.Context, c *app.RequestContext) {
		limiter := NewRateLimiter(config, redis.Client())
		id := limiter.identity(ctx, c)

		blocked, err := limiter.IsBlocked(ctx, id)
		if err != nil {
			logger.Logger.Error("Failed to check block status", zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			c.Abort()
			response.Error(ctx, c, errors.RateLimited)
			return
		}

		now := time.Now()
		allowed, count, err := limiter.Allow(ctx, id, now)
		if err != nil {
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Duration(config.Window)*time.Second).Unix(), 10))

		if !allowed {
			if err := limiter.Block(ctx, id); err != nil {
				logger.Logger.Error("Failed to block client", zap.Error(err))
			}
			logger.Logger.Warn("Rate limit exceeded",
				zap.String("key_prefix", config.KeyPrefix),
				zap.String("identity", id),
				zap.Int("count", count),
			)
			c.Abort()
			response.Error(ctx, c, errors.RateLimited)
			return
		}

		c.Next(ctx)
	}
}

// AuthRateLimitMiddleware 认证相关限流（注册、登录、刷新）
func AuthRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AuthRateLimitConfig)
}

// OnboardingRateLimitMiddleware 引导接口限流
func OnboardingRateLimitMiddleware() app.HandlerFunc {
	cfg := OnboardingRateLimitConfig
	if n := appconfig.Cfg.RateLimitOnboardingPerMinute; n > 0 {
		cfg.MaxRequests = n
	}
	return RateLimitMiddleware(cfg)
}
