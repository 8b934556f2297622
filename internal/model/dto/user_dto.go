package dto

import "time"

// ========== User 相关 DTO ==========

// UserProfile 用户资料
type UserProfile struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	FullName              string     `json:"full_name"`
	OnboardingStatus      string     `json:"onboarding_status"`
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_at,omitempty"`
	NativeLanguage        *string    `json:"native_language,omitempty"`
	Industry              *string    `json:"industry,omitempty"`
	SelectedRoleID        *string    `json:"selected_role_id,omitempty"`
	SelectedRoleTitle     *string    `json:"selected_role_title,omitempty"`
	CustomRoleTitle       *string    `json:"custom_role_title,omitempty"`
	CustomRoleDescription *string    `json:"custom_role_description,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}
