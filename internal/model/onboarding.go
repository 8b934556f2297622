package model

import (
	"time"

	"FluentPro/internal/onboarding"
)

// OnboardingSession 每个用户当前的引导会话，State 为会话快照（JSONB）
type OnboardingSession struct {
	BaseModel
	SessionID string           `gorm:"uniqueIndex;type:varchar(32);not null" json:"session_id"`
	UserID    int64            `gorm:"uniqueIndex;not null" json:"user_id"`
	Phase     string           `gorm:"type:varchar(32);not null;index" json:"phase"`
	State     onboarding.State `gorm:"type:jsonb;serializer:json;not null" json:"state"`
}

func (OnboardingSession) TableName() string {
	return "onboarding_sessions"
}

// UserPartnerSituation 用户选择的沟通对象及对应场景，Priority 为选择次序
type UserPartnerSituation struct {
	BaseModel
	UserID     int64    `gorm:"uniqueIndex:idx_user_partner;not null" json:"user_id"`
	Partner    string   `gorm:"uniqueIndex:idx_user_partner;type:varchar(32);not null" json:"partner"`
	Situations []string `gorm:"type:jsonb;serializer:json;not null" json:"situations"`
	Priority   int      `gorm:"not null;default:0" json:"priority"`
}

func (UserPartnerSituation) TableName() string {
	return "user_partner_situations"
}

// RecommendationStatus 课程推荐记录的状态
type RecommendationStatus string

const (
	RecommendationReady      RecommendationStatus = "ready"
	RecommendationGenerating RecommendationStatus = "generating"
	RecommendationNone       RecommendationStatus = "none"
)

// CourseRecommendation 引导完成后为用户分配的课程，定制课程生成中时由 worker 轮询补全
type CourseRecommendation struct {
	BaseModel
	UserID    int64                `gorm:"uniqueIndex;not null" json:"user_id"`
	SessionID string               `gorm:"type:varchar(32);not null" json:"session_id"`
	Status    RecommendationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Courses   []onboarding.Course  `gorm:"type:jsonb;serializer:json" json:"courses"`
	Attempts  int                  `gorm:"not null;default:0" json:"attempts"`
	// SelectedCourseID 用户在引导中选择的课程，为空表示没有选择
	SelectedCourseID string     `gorm:"type:varchar(64)" json:"selected_course_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func (CourseRecommendation) TableName() string {
	return "course_recommendations"
}
