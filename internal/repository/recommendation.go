package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"FluentPro/internal/model"
)

// CourseRecommendationRepository 引导完成后分配给用户的课程
type CourseRecommendationRepository struct {
	db *gorm.DB
}

func NewCourseRecommendationRepository(db *gorm.DB) *CourseRecommendationRepository {
	return &CourseRecommendationRepository{db: db}
}

func (r *CourseRecommendationRepository) GetByUserID(ctx context.Context, userID int64) (*model.CourseRecommendation, error) {
	var rec model.CourseRecommendation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert 按 user_id 覆盖写入推荐结果
func (r *CourseRecommendationRepository) Upsert(ctx context.Context, rec *model.CourseRecommendation) error {
	if rec.Status != model.RecommendationGenerating && rec.CompletedAt == nil {
		now := time.Now()
		rec.CompletedAt = &now
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"session_id", "status", "courses", "attempts", "selected_course_id", "completed_at", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upsert course recommendation: %w", err)
	}
	return nil
}
