package model

import (
	"time"

	"FluentPro/internal/onboarding"
)

// OnboardingCompletedMessage 用户完成引导后发布，worker 据此分配课程
type OnboardingCompletedMessage struct {
	UserID      int64              `json:"user_id"`
	SessionID   string             `json:"session_id"`
	Summary     onboarding.Summary `json:"summary"`
	CompletedAt time.Time          `json:"completed_at"`
}

// RecommendationPollMessage 定制课程生成中时的延迟轮询消息
type RecommendationPollMessage struct {
	UserID      int64                  `json:"user_id"`
	SessionID   string                 `json:"session_id"`
	Query       onboarding.CourseQuery `json:"query"`
	Attempt     int                    `json:"attempt"`
	ScheduledAt time.Time              `json:"scheduled_at"`
}
