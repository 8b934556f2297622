package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FluentPro/internal/middleware"
	"FluentPro/internal/service"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/response"
)

// GetUserProfile 获取用户资料和引导状态
// GET /v1/users/me
func GetUserProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}

	profile, err := service.User().GetProfile(ctx, userID)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	response.Success(ctx, c, profile)
}

// GetAssignedCourses 引导完成后分配的课程
// GET /v1/onboarding/courses
func GetAssignedCourses(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return
	}

	courses, err := service.User().GetCourses(ctx, userID)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	response.Success(ctx, c, courses)
}
