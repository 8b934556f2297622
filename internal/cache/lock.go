package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	ri "github.com/redis/go-redis/v9"

	"FluentPro/storage/redis"
)

// 分布式锁，同一用户的引导操作在多个实例之间串行执行
const (
	lockPrefix = "lock"
)

// ErrLockNotHeld 锁已过期或被他人持有
var ErrLockNotHeld = errors.New("lock not held")

// 只删除自己持有的锁
var unlockScript = ri.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 一次成功加锁的凭证
type Lock struct {
	key   string
	owner string
}

// TryLock 尝试加锁，锁已被占用时返回 (nil, nil)
func TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	fullKey := redis.Key(lockPrefix, key)
	owner := uuid.NewString()

	ok, err := redis.Client().SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &Lock{key: fullKey, owner: owner}, nil
}

// Unlock 释放锁，锁已不属于自己时返回 ErrLockNotHeld
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, redis.Client(), []string{l.key}, l.owner).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
