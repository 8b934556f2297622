package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	RateLimited    = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
	Internal       = Definition{Code: "INTERNAL_ERROR", Message: "Internal error"}
)

// 认证相关错误。
var (
	EmailAlreadyRegistered = Definition{Code: "EMAIL_ALREADY_REGISTERED", Message: "Email already registered"}
	InvalidCredentials     = Definition{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	WeakPassword           = Definition{Code: "WEAK_PASSWORD", Message: "Password must be at least 8 characters"}
	TokenInvalid           = Definition{Code: "TOKEN_INVALID", Message: "Token invalid or expired"}
	Unauthorized           = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID          = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	UserNotFound           = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
)

// 引导流程错误。
var (
	OnboardingStepInvalid         = Definition{Code: "ONBOARDING_STEP_INVALID", Message: "Onboarding step invalid"}
	OnboardingValidationFailed    = Definition{Code: "ONBOARDING_VALIDATION_FAILED", Message: "Onboarding input invalid"}
	OnboardingOperationInFlight   = Definition{Code: "ONBOARDING_OPERATION_IN_FLIGHT", Message: "Onboarding operation already in progress"}
	OnboardingCollaboratorFailed  = Definition{Code: "ONBOARDING_COLLABORATOR_FAILED", Message: "Onboarding service unavailable, please retry"}
	OnboardingCollaboratorTimeout = Definition{Code: "ONBOARDING_COLLABORATOR_TIMEOUT", Message: "Onboarding service timed out, please retry"}
	OnboardingSessionNotFound     = Definition{Code: "ONBOARDING_SESSION_NOT_FOUND", Message: "Onboarding session not found"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:                InvalidRequest,
	RateLimited.Code:                   RateLimited,
	Internal.Code:                      Internal,
	EmailAlreadyRegistered.Code:        EmailAlreadyRegistered,
	InvalidCredentials.Code:            InvalidCredentials,
	WeakPassword.Code:                  WeakPassword,
	TokenInvalid.Code:                  TokenInvalid,
	Unauthorized.Code:                  Unauthorized,
	InvalidUserID.Code:                 InvalidUserID,
	UserNotFound.Code:                  UserNotFound,
	OnboardingStepInvalid.Code:         OnboardingStepInvalid,
	OnboardingValidationFailed.Code:    OnboardingValidationFailed,
	OnboardingOperationInFlight.Code:   OnboardingOperationInFlight,
	OnboardingCollaboratorFailed.Code:  OnboardingCollaboratorFailed,
	OnboardingCollaboratorTimeout.Code: OnboardingCollaboratorTimeout,
	OnboardingSessionNotFound.Code:     OnboardingSessionNotFound,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
