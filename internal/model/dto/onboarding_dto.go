package dto

import (
	"time"

	"FluentPro/internal/onboarding"
)

// ========== Onboarding 相关 DTO ==========

type LanguageRequest struct {
	NativeLanguage string `json:"native_language"`
}

type IndustryRequest struct {
	Industry string `json:"industry"`
}

type RoleRequest struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
}

type RoleSelectRequest struct {
	RoleID string `json:"role_id"`
}

type PartnerRequest struct {
	Partner string `json:"partner"`
}

type SituationRequest struct {
	Situation string `json:"situation"`
}

type CourseSelectRequest struct {
	CourseID string `json:"course_id"`
}

// OnboardingView 每个引导接口返回的会话视图
type OnboardingView struct {
	SessionID            string                          `json:"session_id"`
	Phase                onboarding.Phase                `json:"phase"`
	BasicInfoStep        onboarding.BasicInfoStep        `json:"basic_info_step"`
	Progress             int                             `json:"progress"`
	IsLoading            bool                            `json:"is_loading"`
	RoleSearchInProgress bool                            `json:"role_search_in_progress"`
	RoleMatchStatus      string                          `json:"role_match_status"` // pending, matched, not_matched
	CurrentPartner       *onboarding.ConversationPartner `json:"current_partner,omitempty"`
	LastError            string                          `json:"last_error,omitempty"`
	Answers              onboarding.Answers              `json:"answers"`
	Summary              *onboarding.Summary             `json:"summary,omitempty"`
}

// CatalogResponse 引导流程中可选的枚举值
type CatalogResponse struct {
	Languages  []onboarding.Language              `json:"languages"`
	Industries []onboarding.Industry              `json:"industries"`
	Partners   []onboarding.ConversationPartner   `json:"partners"`
	Situations []onboarding.ConversationSituation `json:"situations"`
}

// CoursesResponse 引导完成后 worker 分配的课程
type CoursesResponse struct {
	Status    string              `json:"status"` // ready, generating, none
	Courses   []onboarding.Course `json:"courses"`
	Attempts  int                 `json:"attempts"`
	// SelectedCourseID 用户在引导中选择的课程
	SelectedCourseID string    `json:"selected_course_id,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}
