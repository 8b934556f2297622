package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"FluentPro/internal/model"
	"FluentPro/internal/onboarding"
)

// SelectionRepository 把引导中确认的选择写入用户资料和沟通对象表
type SelectionRepository struct {
	db *gorm.DB
}

func NewSelectionRepository(db *gorm.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Apply 持久化一次选择，userID 为 users.public_id
func (r *SelectionRepository) Apply(ctx context.Context, userID int64, sel onboarding.Selection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if updates := profileUpdates(sel); len(updates) > 0 {
			updates["updated_at"] = time.Now()
			res := tx.Model(&model.User{}).Where("public_id = ?", userID).Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("update profile (%s): %w", sel.Kind, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}

		switch sel.Kind {
		case onboarding.SelectionPartners:
			return replacePartners(tx, userID, sel.Partners)
		case onboarding.SelectionPartnerSituations:
			return upsertSituations(tx, userID, sel)
		}
		return nil
	})
}

// profileUpdates 选择对应的 users 表字段
func profileUpdates(sel onboarding.Selection) map[string]interface{} {
	switch sel.Kind {
	case onboarding.SelectionLanguage:
		return map[string]interface{}{"native_language": string(sel.Language)}
	case onboarding.SelectionIndustry:
		return map[string]interface{}{"industry": string(sel.Industry)}
	case onboarding.SelectionRole:
		if sel.Role == nil {
			return nil
		}
		return map[string]interface{}{
			"selected_role_id":        sel.Role.ID,
			"selected_role_title":     sel.Role.Title,
			"custom_role_title":       nil,
			"custom_role_description": nil,
		}
	case onboarding.SelectionCustomRole:
		return map[string]interface{}{
			"selected_role_id":        nil,
			"selected_role_title":     nil,
			"custom_role_title":       sel.RoleTitle,
			"custom_role_description": sel.RoleDescription,
		}
	case onboarding.SelectionCourse:
		return map[string]interface{}{"selected_course_id": sel.CourseID}
	case onboarding.SelectionCompleted:
		updates := map[string]interface{}{
			"onboarding_status":       onboarding.StatusCompleted,
			"onboarding_completed_at": time.Now(),
		}
		if sel.CourseID != "" {
			updates["selected_course_id"] = sel.CourseID
		}
		return updates
	default:
		return nil
	}
}

// replacePartners 删除不再选择的沟通对象，保留仍被选择的对象已有场景并更新次序
func replacePartners(tx *gorm.DB, userID int64, partners []onboarding.ConversationPartner) error {
	names := make([]string, len(partners))
	for i, p := range partners {
		names[i] = string(p)
	}

	del := tx.Unscoped().Where("user_id = ?", userID)
	if len(names) > 0 {
		del = del.Where("partner NOT IN ?", names)
	}
	if err := del.Delete(&model.UserPartnerSituation{}).Error; err != nil {
		return fmt.Errorf("delete deselected partners: %w", err)
	}

	if len(partners) == 0 {
		return nil
	}

	rows := make([]model.UserPartnerSituation, len(partners))
	for i, p := range partners {
		rows[i] = model.UserPartnerSituation{
			UserID:     userID,
			Partner:    string(p),
			Situations: []string{},
			Priority:   i + 1,
		}
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "partner"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert partners: %w", err)
	}
	return nil
}

func upsertSituations(tx *gorm.DB, userID int64, sel onboarding.Selection) error {
	situations := make([]string, len(sel.Situations))
	for i, s := range sel.Situations {
		situations[i] = string(s)
	}

	row := model.UserPartnerSituation{
		UserID:     userID,
		Partner:    string(sel.Partner),
		Situations: situations,
		Priority:   sel.Priority,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "partner"}},
		DoUpdates: clause.AssignmentColumns([]string{"situations", "priority", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert situations for %s: %w", sel.Partner, err)
	}
	return nil
}

// ListPartnerSituations 按选择次序返回用户的沟通对象及场景
func (r *SelectionRepository) ListPartnerSituations(ctx context.Context, userID int64) ([]model.UserPartnerSituation, error) {
	var rows []model.UserPartnerSituation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority ASC").
		Find(&rows).Error
	return rows, err
}
