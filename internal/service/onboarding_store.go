package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"FluentPro/config"
	"FluentPro/internal/cache"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/queue"
	"FluentPro/internal/repository"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/snowflake"
)

// snapshotRepository 会话快照的持久化层
type snapshotRepository interface {
	Get(ctx context.Context, userID int64) (*onboarding.State, error)
	Save(ctx context.Context, userID int64, st onboarding.State) error
}

// cachedSessionStore 数据库为准，Redis 做读缓存（cache-aside）
type cachedSessionStore struct {
	repo  snapshotRepository
	cache *cache.ProtectedCache
}

func newCachedSessionStore(repo snapshotRepository, c *cache.ProtectedCache) *cachedSessionStore {
	return &cachedSessionStore{repo: repo, cache: c}
}

func (s *cachedSessionStore) Load(ctx context.Context, userID int64) (*onboarding.State, error) {
	key := strconv.FormatInt(userID, 10)

	var st onboarding.State
	hit, empty, err := s.cache.Get(ctx, key, &st)
	if err != nil {
		logger.Logger.Warn("Failed to read onboarding session cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	} else if hit {
		if empty {
			return nil, nil
		}
		return &st, nil
	}

	found, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, repository.ErrNotFound) {
		s.fill(ctx, key, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.fill(ctx, key, found)
	return found, nil
}

func (s *cachedSessionStore) Save(ctx context.Context, userID int64, st onboarding.State) error {
	if err := s.repo.Save(ctx, userID, st); err != nil {
		return err
	}
	s.fill(ctx, strconv.FormatInt(userID, 10), &st)
	return nil
}

// fill 写缓存失败时删除旧值，避免读到过期快照
func (s *cachedSessionStore) fill(ctx context.Context, key string, st *onboarding.State) {
	var value interface{}
	if st != nil {
		value = st
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logger.Logger.Warn("Failed to write onboarding session cache",
			zap.String("key", key),
			zap.Error(err),
		)
		_ = s.cache.Delete(ctx, key)
	}
}

// redisLocker 基于 SETNX 的用户级互斥
type redisLocker struct {
	ttl time.Duration
}

func (l redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := cache.TryLock(ctx, "onboarding:"+key, l.ttl)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrSessionBusy
	}

	return func() {
		// 请求的 ctx 可能已取消，释放锁用独立的超时
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := lock.Unlock(ctx); err != nil {
			logger.Logger.Warn("Failed to release onboarding lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}, nil
}

// NewDefaultOnboarding 用数据库、Redis、RabbitMQ 和外部服务装配引导服务
func NewDefaultOnboarding(db *gorm.DB, roles onboarding.RoleMatcher, courses onboarding.CourseRecommender) *OnboardingService {
	cfg := config.Cfg
	sessions := cache.NewProtectedCache("onboarding:session", cfg.OnboardingSessionTTL)
	selections := repository.NewSelectionRepository(db)

	return NewOnboardingService(OnboardingDeps{
		Sessions:          newCachedSessionStore(repository.NewOnboardingSessionRepository(db), sessions),
		Locker:            redisLocker{ttl: cfg.OnboardingLockTTL},
		Selections:        selections,
		Partners:          selections,
		Users:             repository.NewUserRepository(db),
		Publisher:         queue.Publisher{},
		RoleMatcher:       roles,
		CourseRecommender: courses,
		CallTimeout:       cfg.OnboardingCallTimeout,
		NewSessionID:      snowflake.NextIDString,
	})
}
