package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"FluentPro/internal/model"
	"FluentPro/internal/onboarding"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户，邮箱重复时返回 ErrEmailTaken
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByPublicID API 中的用户 ID 都是 public_id
func (r *UserRepository) GetByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	return r.first(ctx, "public_id = ?", publicID)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateOnboardingStatus 更新引导状态，进入 completed 时记录完成时间
func (r *UserRepository) UpdateOnboardingStatus(ctx context.Context, publicID int64, status string) error {
	updates := map[string]interface{}{
		"onboarding_status": status,
		"updated_at":        time.Now(),
	}
	if status == onboarding.StatusCompleted {
		updates["onboarding_completed_at"] = time.Now()
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("public_id = ?", publicID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update onboarding status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
