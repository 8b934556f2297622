package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"FluentPro/internal/model"
	"FluentPro/pkg/logger"
	"FluentPro/storage/mq"
)

// Publisher 通过 RabbitMQ 发布引导相关消息
type Publisher struct{}

// PublishOnboardingCompleted 发布引导完成事件
func (Publisher) PublishOnboardingCompleted(ctx context.Context, msg *model.OnboardingCompletedMessage) error {
	id, err := mq.PublishMessage(ctx, ExchangeEvents, RoutingOnboardingCompleted, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish onboarding completed message",
			zap.Int64("user_id", msg.UserID),
			zap.String("session_id", msg.SessionID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published onboarding completed message",
		zap.String("message_id", id),
		zap.Int64("user_id", msg.UserID),
		zap.String("session_id", msg.SessionID),
	)
	return nil
}

// PublishRecommendationPoll 发布定制课程轮询（延迟消息）
func (Publisher) PublishRecommendationPoll(ctx context.Context, msg *model.RecommendationPollMessage, delay time.Duration) error {
	id, err := mq.PublishDelayedMessage(ctx, ExchangeDelayed, RoutingRecommendationPoll, delay, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish recommendation poll message",
			zap.Int64("user_id", msg.UserID),
			zap.Int("attempt", msg.Attempt),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published recommendation poll message",
		zap.String("message_id", id),
		zap.Int64("user_id", msg.UserID),
		zap.Int("attempt", msg.Attempt),
		zap.Duration("delay", delay),
	)
	return nil
}
