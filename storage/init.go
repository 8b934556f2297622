package storage

import (
	"fmt"

	"go.uber.org/zap"

	"FluentPro/pkg/logger"
	"FluentPro/storage/database"
	"FluentPro/storage/mq"
	"FluentPro/storage/redis"
)

// initOrder 与 closeOrder 相反：数据库最先就绪，MQ 最后连接
var initOrder = []struct {
	name string
	init func() error
}{
	{"database", database.Init},
	{"redis", redis.Init},
	{"message queue", mq.Init},
}

// Init 统一初始化 storage 层，任一连接失败立即返回
func Init() error {
	for _, c := range initOrder {
		if err := c.init(); err != nil {
			return fmt.Errorf("init %s: %w", c.name, err)
		}
		logger.Logger.Info("Storage connection ready", zap.String("storage", c.name))
	}
	return nil
}
