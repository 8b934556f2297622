package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"FluentPro/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusFor 根据错误码映射 HTTP 状态码
func StatusFor(code string) int {
	switch code {
	case errors.InvalidRequest.Code, errors.WeakPassword.Code, errors.InvalidUserID.Code,
		errors.OnboardingValidationFailed.Code:
		return http.StatusBadRequest // 400
	case errors.Unauthorized.Code, errors.InvalidCredentials.Code, errors.TokenInvalid.Code:
		return http.StatusUnauthorized // 401
	case errors.UserNotFound.Code, errors.OnboardingSessionNotFound.Code:
		return http.StatusNotFound // 404
	case errors.EmailAlreadyRegistered.Code, errors.OnboardingStepInvalid.Code,
		errors.OnboardingOperationInFlight.Code:
		return http.StatusConflict // 409
	case errors.RateLimited.Code:
		return http.StatusTooManyRequests // 429
	case errors.OnboardingCollaboratorFailed.Code:
		return http.StatusBadGateway // 502
	case errors.OnboardingCollaboratorTimeout.Code:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// resolve 取出错误链中的 Definition，没有则视为内部错误
func resolve(err error) (errors.Definition, int) {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def, StatusFor(def.Code)
	}
	return errors.Definition{Code: errors.Internal.Code, Message: err.Error()}, http.StatusInternalServerError
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	def, statusCode := resolve(err)

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    def.Code,
			Message: def.Message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// Created 返回 201
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
