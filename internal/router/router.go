package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"FluentPro/internal/handler"
	"FluentPro/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())
	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/signup", handler.Signup)
		auth.POST("/login", handler.Login)
		auth.POST("/token/refresh", handler.RefreshToken)
		auth.POST("/logout", handler.Logout)
	}

	// 用户相关路由
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", handler.GetUserProfile)
	}

	// 引导流程，每个接口返回最新的会话视图
	ob := v1.Group("/onboarding")
	ob.Use(middleware.AuthMiddleware(), middleware.OnboardingRateLimitMiddleware())
	{
		ob.GET("", handler.GetOnboarding)
		ob.GET("/catalog", handler.GetCatalog)
		ob.GET("/courses", handler.GetAssignedCourses)
		ob.POST("/restart", handler.RestartOnboarding)

		ob.POST("/begin", handler.BeginOnboarding)
		ob.POST("/intro/continue", handler.ContinueFromIntro)

		// 第一阶段：语言、行业、职位
		ob.POST("/language", handler.SelectLanguage)
		ob.POST("/industry", handler.SelectIndustry)
		ob.POST("/role", handler.SubmitRole)
		ob.POST("/role/select", handler.SelectRole)
		ob.POST("/role/no-match", handler.SelectNoMatch)
		ob.POST("/basic-info/back", handler.PreviousBasicInfoStep)
		ob.POST("/phase1/continue", handler.ContinueFromPhase1)

		// 第二阶段：对话对象和场景
		ob.POST("/partners/toggle", handler.TogglePartner)
		ob.POST("/partners/continue", handler.ContinueFromPartnerSelection)
		ob.POST("/situations/toggle", handler.ToggleSituation)
		ob.POST("/situations/continue", handler.ContinueFromSituationSelection)
		ob.POST("/situations/back", handler.PreviousPartner)

		ob.POST("/courses/recommend", handler.RecommendCourses)
		ob.POST("/courses/select", handler.SelectCourse)
		ob.POST("/finish", handler.FinishOnboarding)
	}
}
