package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"FluentPro/pkg/logger"
)

// Init 初始化鉴权和 HTTP 指标，必须在 token.Init 之后调用
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	// 指标初始化失败不影响服务
	if err := InitMetrics(otel.Meter("fluentpro-http")); err != nil {
		logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
