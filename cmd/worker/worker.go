package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"FluentPro/config"
	"FluentPro/internal/collaborator"
	"FluentPro/internal/queue"
	"FluentPro/internal/repository"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/metrics"
	"FluentPro/storage"
	"FluentPro/storage/database"
	"FluentPro/storage/mq"
)

// 同一条消息在这段时间内只处理一次
const dedupTTL = 24 * time.Hour

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize onboarding metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := mq.Declare(queue.Topology()); err != nil {
		logger.Logger.Fatal("Failed to declare message topology", zap.Error(err))
	}

	collaborators, err := collaborator.New(&config.Cfg)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize collaborators", zap.Error(err))
	}

	assigner := &queue.CourseAssigner{
		Recommender: collaborators.CourseRecommender,
		Store:       repository.NewCourseRecommendationRepository(database.DB()),
		Poller:      queue.Publisher{},
		Dedup:       queue.RedisDeduper{TTL: dedupTTL},
		Invalidate:  queue.InvalidateRecommendationCache,
		PollDelay:   config.Cfg.RecommendationPollWait,
		MaxPolls:    config.Cfg.RecommendationPollMax,
		CallTimeout: config.Cfg.OnboardingCallTimeout,
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Duration("poll_delay", assigner.PollDelay),
		zap.Int("max_polls", assigner.MaxPolls),
	)

	// 任一消费者异常退出时取消其余消费者
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.StartOnboardingCompletedConsumer(gctx, assigner)
	})
	g.Go(func() error {
		return queue.StartRecommendationPollConsumer(gctx, assigner)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Logger.Error("Consumer stopped unexpectedly", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
