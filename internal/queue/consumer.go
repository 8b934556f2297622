package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"FluentPro/internal/cache"
	"FluentPro/internal/model"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/repository"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/metrics"
	"FluentPro/storage/mq"
)

// RecommendationStore 课程推荐记录
type RecommendationStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.CourseRecommendation, error)
	Upsert(ctx context.Context, rec *model.CourseRecommendation) error
}

// PollPublisher 安排下一次定制课程轮询
type PollPublisher interface {
	PublishRecommendationPoll(ctx context.Context, msg *model.RecommendationPollMessage, delay time.Duration) error
}

// Deduper 消息幂等标记
type Deduper interface {
	TryMark(ctx context.Context, messageID string) (bool, error)
	Unmark(ctx context.Context, messageID string) error
	MarkDone(ctx context.Context, messageID string) error
}

// CourseAssigner 引导完成后为用户分配课程，定制课程生成中时按固定间隔轮询
type CourseAssigner struct {
	Recommender onboarding.CourseRecommender
	Store       RecommendationStore
	Poller      PollPublisher
	Dedup       Deduper
	// Invalidate 推荐记录变化后清理读缓存，可为空
	Invalidate  func(ctx context.Context, userID int64)
	PollDelay   time.Duration
	MaxPolls    int
	CallTimeout time.Duration
	Now         func() time.Time
}

func (a *CourseAssigner) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// HandleCompleted 处理 onboarding.completed。
// 会话里已经有推荐结果时直接使用，否则按摘要重新请求推荐服务
func (a *CourseAssigner) HandleCompleted(ctx context.Context, d mq.Delivery) error {
	var msg model.OnboardingCompletedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return &mq.SkipMessageError{Reason: fmt.Sprintf("invalid onboarding completed message: %v", err)}
	}

	return a.once(ctx, d.MessageID, func() error {
		rec := msg.Summary.Recommendation
		query, hasQuery := msg.Summary.CourseQuery()

		if rec == nil {
			if !hasQuery {
				logger.Logger.Warn("Onboarding completed without industry, no courses assigned",
					zap.Int64("user_id", msg.UserID),
					zap.String("session_id", msg.SessionID),
				)
				return a.save(ctx, msg.UserID, msg.SessionID, onboarding.CourseRecommendation{}, 0, "")
			}

			fresh, err := a.recommend(ctx, query)
			if err != nil {
				metrics.RecordRecommendation(ctx, "failed")
				return fmt.Errorf("recommend courses for user %d: %w", msg.UserID, err)
			}
			rec = &fresh
		}

		if err := a.save(ctx, msg.UserID, msg.SessionID, *rec, 0, msg.Summary.SelectedCourseID); err != nil {
			return err
		}
		metrics.RecordRecommendation(ctx, string(rec.Outcome()))

		if rec.Outcome() == onboarding.CoursesGenerating && hasQuery {
			return a.schedulePoll(ctx, msg.UserID, msg.SessionID, query, 1)
		}
		return nil
	})
}

// HandlePoll 处理定制课程轮询，超过 MaxPolls 次仍在生成时记为没有课程
func (a *CourseAssigner) HandlePoll(ctx context.Context, d mq.Delivery) error {
	var msg model.RecommendationPollMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return &mq.SkipMessageError{Reason: fmt.Sprintf("invalid recommendation poll message: %v", err)}
	}

	return a.once(ctx, d.MessageID, func() error {
		current, err := a.Store.GetByUserID(ctx, msg.UserID)
		if stderrors.Is(err, repository.ErrNotFound) {
			return &mq.SkipMessageError{Reason: fmt.Sprintf("no recommendation for user %d", msg.UserID)}
		}
		if err != nil {
			return fmt.Errorf("load recommendation for user %d: %w", msg.UserID, err)
		}
		// 用户重新完成引导后旧的轮询作废
		if current.Status != model.RecommendationGenerating || current.SessionID != msg.SessionID {
			return &mq.SkipMessageError{Reason: fmt.Sprintf("recommendation for user %d is %s", msg.UserID, current.Status)}
		}

		rec, err := a.recommend(ctx, msg.Query)
		if err != nil {
			// 轮询失败不重投，直接安排下一次
			logger.Logger.Warn("Recommendation poll failed",
				zap.Int64("user_id", msg.UserID),
				zap.Int("attempt", msg.Attempt),
				zap.Error(err),
			)
			metrics.RecordRecommendationPoll(ctx, "failed")
			return a.next(ctx, msg)
		}

		outcome := rec.Outcome()
		metrics.RecordRecommendationPoll(ctx, string(outcome))

		if outcome == onboarding.CoursesGenerating {
			if err := a.save(ctx, msg.UserID, msg.SessionID, rec, msg.Attempt, current.SelectedCourseID); err != nil {
				return err
			}
			return a.next(ctx, msg)
		}
		return a.save(ctx, msg.UserID, msg.SessionID, rec, msg.Attempt, current.SelectedCourseID)
	})
}

// next 安排下一次轮询，次数用尽时放弃
func (a *CourseAssigner) next(ctx context.Context, msg model.RecommendationPollMessage) error {
	if msg.Attempt >= a.MaxPolls {
		logger.Logger.Warn("Custom courses still generating, giving up",
			zap.Int64("user_id", msg.UserID),
			zap.Int("attempts", msg.Attempt),
		)
		metrics.RecordRecommendation(ctx, string(onboarding.NoCourses))
		return a.save(ctx, msg.UserID, msg.SessionID, onboarding.CourseRecommendation{}, msg.Attempt, "")
	}
	return a.schedulePoll(ctx, msg.UserID, msg.SessionID, msg.Query, msg.Attempt+1)
}

func (a *CourseAssigner) schedulePoll(ctx context.Context, userID int64, sessionID string, q onboarding.CourseQuery, attempt int) error {
	return a.Poller.PublishRecommendationPoll(ctx, &model.RecommendationPollMessage{
		UserID:      userID,
		SessionID:   sessionID,
		Query:       q,
		Attempt:     attempt,
		ScheduledAt: a.now().Add(a.PollDelay),
	}, a.PollDelay)
}

func (a *CourseAssigner) recommend(ctx context.Context, q onboarding.CourseQuery) (onboarding.CourseRecommendation, error) {
	if a.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.CallTimeout)
		defer cancel()
	}
	return a.Recommender.RecommendCourses(ctx, q)
}

// save 写入推荐记录；选择的课程不在最终结果中时丢弃
func (a *CourseAssigner) save(ctx context.Context, userID int64, sessionID string, rec onboarding.CourseRecommendation, attempts int, selectedCourseID string) error {
	row := &model.CourseRecommendation{
		UserID:    userID,
		SessionID: sessionID,
		Status:    statusFor(rec.Outcome()),
		Courses:   rec.Courses,
		Attempts:  attempts,
	}
	for _, c := range rec.Courses {
		if c.ID == selectedCourseID {
			row.SelectedCourseID = selectedCourseID
			break
		}
	}
	if err := a.Store.Upsert(ctx, row); err != nil {
		return fmt.Errorf("save recommendation for user %d: %w", userID, err)
	}
	if a.Invalidate != nil {
		a.Invalidate(ctx, userID)
	}
	return nil
}

func statusFor(o onboarding.CourseOutcome) model.RecommendationStatus {
	switch o {
	case onboarding.CoursesReady:
		return model.RecommendationReady
	case onboarding.CoursesGenerating:
		return model.RecommendationGenerating
	default:
		return model.RecommendationNone
	}
}

// once 幂等执行：重复消息跳过，失败时撤销标记以便重投后重试
func (a *CourseAssigner) once(ctx context.Context, messageID string, fn func() error) error {
	if messageID == "" || a.Dedup == nil {
		return fn()
	}

	first, err := a.Dedup.TryMark(ctx, messageID)
	if err != nil {
		// 检查失败时继续处理，最多重复写一次推荐记录
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	} else if !first {
		return &mq.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", messageID)}
	}

	if err := fn(); err != nil {
		if !mq.IsSkipMessageError(err) {
			if uerr := a.Dedup.Unmark(ctx, messageID); uerr != nil {
				logger.Logger.Warn("Failed to unmark message",
					zap.String("message_id", messageID),
					zap.Error(uerr),
				)
			}
		}
		return err
	}

	if err := a.Dedup.MarkDone(ctx, messageID); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
	return nil
}

// ========== 启动 ==========

// StartOnboardingCompletedConsumer 启动引导完成消费者，阻塞到 ctx 结束
func StartOnboardingCompletedConsumer(ctx context.Context, a *CourseAssigner) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         QueueOnboardingCompleted,
		ConsumerTag:   "onboarding_completed_consumer",
		PrefetchCount: 10,
		Handler:       a.HandleCompleted,
	})
}

// StartRecommendationPollConsumer 启动定制课程轮询消费者
func StartRecommendationPollConsumer(ctx context.Context, a *CourseAssigner) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         QueueRecommendationPoll,
		ConsumerTag:   "recommendation_poll_consumer",
		PrefetchCount: 5,
		Handler:       a.HandlePoll,
	})
}

// RedisDeduper 基于 Redis 的消息幂等标记
type RedisDeduper struct {
	TTL time.Duration
}

func (r RedisDeduper) TryMark(ctx context.Context, messageID string) (bool, error) {
	return cache.TryMarkMessageProcessing(ctx, messageID, r.TTL)
}

func (r RedisDeduper) Unmark(ctx context.Context, messageID string) error {
	return cache.UnmarkMessageProcessing(ctx, messageID)
}

func (r RedisDeduper) MarkDone(ctx context.Context, messageID string) error {
	return cache.MarkMessageProcessed(ctx, messageID, 2*r.TTL)
}

// InvalidateRecommendationCache 清理用户推荐记录的读缓存
func InvalidateRecommendationCache(ctx context.Context, userID int64) {
	if err := cache.RecommendationProtectedCache.Delete(ctx, strconv.FormatInt(userID, 10)); err != nil {
		logger.Logger.Warn("Failed to invalidate recommendation cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
