package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FluentPro/internal/model/dto"
	"FluentPro/internal/service"
	"FluentPro/pkg/response"
)

// Signup 邮箱注册
// POST /v1/auth/signup
func Signup(ctx context.Context, c *app.RequestContext) {
	var req dto.SignupRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := service.Auth().Signup(ctx, req)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	response.Created(ctx, c, resp)
}

// Login 邮箱密码登录
// POST /v1/auth/login
func Login(ctx context.Context, c *app.RequestContext) {
	var req dto.LoginRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := service.Auth().Login(ctx, req)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	response.Success(ctx, c, resp)
}

// RefreshToken 刷新访问令牌，旧的 refresh token 失效
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := service.Auth().Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	response.Success(ctx, c, resp)
}

// Logout 注销 refresh token
// POST /v1/auth/logout
func Logout(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Auth().Logout(ctx, req.RefreshToken); err != nil {
		writeError(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
