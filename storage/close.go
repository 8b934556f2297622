package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"FluentPro/pkg/logger"
	"FluentPro/storage/database"
	"FluentPro/storage/mq"
	"FluentPro/storage/redis"
)

// closeOrder 先停 MQ 不再收发消息，再关 Redis 锁和缓存，最后关数据库
var closeOrder = []struct {
	name  string
	close func(context.Context) error
}{
	{"message queue", mq.Close},
	{"redis", redis.Close},
	{"database", database.Close},
}

// Close 按顺序关闭所有存储连接，单个失败不影响后续关闭
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	for _, c := range closeOrder {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage connection",
				zap.String("storage", c.name),
				zap.Error(err),
			)
			continue
		}
		logger.Logger.Info("Storage connection closed", zap.String("storage", c.name))
	}

	logger.Logger.Info("All storage connections closed")
}
