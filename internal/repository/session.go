package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"FluentPro/internal/model"
	"FluentPro/internal/onboarding"
)

// OnboardingSessionRepository 每个用户一条会话快照
type OnboardingSessionRepository struct {
	db *gorm.DB
}

func NewOnboardingSessionRepository(db *gorm.DB) *OnboardingSessionRepository {
	return &OnboardingSessionRepository{db: db}
}

// Get 读取用户的会话快照，不存在时返回 ErrNotFound
func (r *OnboardingSessionRepository) Get(ctx context.Context, userID int64) (*onboarding.State, error) {
	var row model.OnboardingSession
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row.State, nil
}

// Save 按 user_id 覆盖写入快照
func (r *OnboardingSessionRepository) Save(ctx context.Context, userID int64, st onboarding.State) error {
	row := model.OnboardingSession{
		SessionID: st.SessionID,
		UserID:    userID,
		Phase:     string(st.Phase),
		State:     st,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "phase", "state", "updated_at", "deleted_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save onboarding session: %w", err)
	}
	return nil
}
