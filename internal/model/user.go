package model

import "time"

// User 用户模型，引导过程中确认的选择写回到资料字段
type User struct {
	BaseModel
	PublicID     int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Email        string `gorm:"uniqueIndex;type:varchar(255);not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(100);not null" json:"-"`
	FullName     string `gorm:"type:varchar(128);not null;default:''" json:"full_name"`

	// 引导状态：not_started, basic_info, personalisation, course_assignment, completed
	OnboardingStatus      string     `gorm:"type:varchar(32);not null;default:'not_started';index" json:"onboarding_status"`
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_at,omitempty"`

	// 引导资料
	NativeLanguage        *string `gorm:"type:varchar(32)" json:"native_language,omitempty"`
	Industry              *string `gorm:"type:varchar(64)" json:"industry,omitempty"`
	SelectedRoleID        *string `gorm:"type:varchar(64)" json:"selected_role_id,omitempty"`
	SelectedRoleTitle     *string `gorm:"type:varchar(255)" json:"selected_role_title,omitempty"`
	CustomRoleTitle       *string `gorm:"type:varchar(255)" json:"custom_role_title,omitempty"`
	CustomRoleDescription *string `gorm:"type:text" json:"custom_role_description,omitempty"`
	SelectedCourseID      *string `gorm:"type:varchar(64)" json:"selected_course_id,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
