package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FluentPro/internal/middleware"
	"FluentPro/internal/model/dto"
	"FluentPro/internal/service"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/response"
)

// onboardingOp 与 OnboardingService 方法表达式的签名一致，接收者在前
type onboardingOp func(s *service.OnboardingService, ctx context.Context, userID int64) (*dto.OnboardingView, error)

// onboardingAction 解析用户后执行一次引导操作。
// 操作被拒绝时仍然带上当前会话视图，方便客户端同步状态
func onboardingAction(op onboardingOp) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		raw, ok := middleware.GetUserID(ctx, c)
		if !ok {
			response.Error(ctx, c, pkgerrors.Unauthorized)
			return
		}
		userID, err := service.ParseUserID(raw)
		if err != nil {
			writeError(ctx, c, err)
			return
		}

		view, err := op(service.Onboarding(), ctx, userID)
		if err != nil {
			var extra map[string]interface{}
			if view != nil {
				extra = map[string]interface{}{"session": view}
			}
			writeErrorWith(ctx, c, err, extra)
			return
		}
		response.Success(ctx, c, view)
	}
}

// bindOnboarding 先绑定请求体再执行引导操作
func bindOnboarding[T any](op func(s *service.OnboardingService, ctx context.Context, userID int64, req T) (*dto.OnboardingView, error)) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		var req T
		if err := c.BindAndValidate(&req); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		onboardingAction(func(s *service.OnboardingService, ctx context.Context, userID int64) (*dto.OnboardingView, error) {
			return op(s, ctx, userID, req)
		})(ctx, c)
	}
}

// GetOnboarding 当前会话状态，完成第二阶段后带摘要
// GET /v1/onboarding
var GetOnboarding = onboardingAction((*service.OnboardingService).Get)

// GetCatalog 引导流程中的可选值
// GET /v1/onboarding/catalog
func GetCatalog(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, service.Onboarding().Catalog())
}

// POST /v1/onboarding/begin
var BeginOnboarding = onboardingAction((*service.OnboardingService).Begin)

// POST /v1/onboarding/intro/continue
var ContinueFromIntro = onboardingAction((*service.OnboardingService).ContinueFromIntro)

// POST /v1/onboarding/language
var SelectLanguage = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.LanguageRequest) (*dto.OnboardingView, error) {
	return s.SelectLanguage(ctx, userID, req.NativeLanguage)
})

// POST /v1/onboarding/industry
var SelectIndustry = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.IndustryRequest) (*dto.OnboardingView, error) {
	return s.SelectIndustry(ctx, userID, req.Industry)
})

// SubmitRole 提交职位，同步调用角色匹配
// POST /v1/onboarding/role
var SubmitRole = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.RoleRequest) (*dto.OnboardingView, error) {
	return s.SubmitRole(ctx, userID, req.JobTitle, req.JobDescription)
})

// POST /v1/onboarding/role/select
var SelectRole = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.RoleSelectRequest) (*dto.OnboardingView, error) {
	return s.SelectRole(ctx, userID, req.RoleID)
})

// POST /v1/onboarding/role/no-match
var SelectNoMatch = onboardingAction((*service.OnboardingService).SelectNoMatch)

// POST /v1/onboarding/basic-info/back
var PreviousBasicInfoStep = onboardingAction((*service.OnboardingService).PreviousBasicInfoStep)

// POST /v1/onboarding/phase1/continue
var ContinueFromPhase1 = onboardingAction((*service.OnboardingService).ContinueFromPhase1)

// POST /v1/onboarding/partners/toggle
var TogglePartner = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.PartnerRequest) (*dto.OnboardingView, error) {
	return s.TogglePartner(ctx, userID, req.Partner)
})

// POST /v1/onboarding/partners/continue
var ContinueFromPartnerSelection = onboardingAction((*service.OnboardingService).ContinueFromPartnerSelection)

// POST /v1/onboarding/situations/toggle
var ToggleSituation = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.SituationRequest) (*dto.OnboardingView, error) {
	return s.ToggleSituation(ctx, userID, req.Situation)
})

// POST /v1/onboarding/situations/continue
var ContinueFromSituationSelection = onboardingAction((*service.OnboardingService).ContinueFromSituationSelection)

// POST /v1/onboarding/situations/back
var PreviousPartner = onboardingAction((*service.OnboardingService).PreviousPartner)

// POST /v1/onboarding/courses/recommend
var RecommendCourses = onboardingAction((*service.OnboardingService).RecommendCourses)

// SelectCourse 在推荐结果中选择课程
// POST /v1/onboarding/courses/select
var SelectCourse = bindOnboarding(func(s *service.OnboardingService, ctx context.Context, userID int64, req dto.CourseSelectRequest) (*dto.OnboardingView, error) {
	return s.SelectCourse(ctx, userID, req.CourseID)
})

// Finish 完成引导并通知 worker 分配课程
// POST /v1/onboarding/finish
var FinishOnboarding = onboardingAction((*service.OnboardingService).Finish)

// POST /v1/onboarding/restart
var RestartOnboarding = onboardingAction((*service.OnboardingService).Restart)
