package handler

import (
	"context"
	stderrors "errors"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"FluentPro/internal/onboarding"
	"FluentPro/internal/service"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/response"
)

// mapError 把领域错误翻译成错误码，details 可能为空
func mapError(err error) (error, map[string]interface{}) {
	var (
		ve *onboarding.ValidationError
		se *onboarding.StateError
		ce *onboarding.CollaboratorError
		pe *service.PasswordPolicyError
	)

	switch {
	case stderrors.As(err, &ve):
		return pkgerrors.OnboardingValidationFailed, map[string]interface{}{
			"field":  ve.Field,
			"reason": ve.Message,
		}
	case stderrors.As(err, &se):
		details := map[string]interface{}{
			"operation": string(se.Op),
			"phase":     string(se.Phase),
		}
		if se.Phase == onboarding.PhaseBasicInfo {
			details["basic_info_step"] = string(se.Step)
		}
		return pkgerrors.OnboardingStepInvalid, details
	case stderrors.Is(err, onboarding.ErrOperationInFlight):
		return pkgerrors.OnboardingOperationInFlight, nil
	case stderrors.As(err, &ce):
		details := map[string]interface{}{"operation": string(ce.Op)}
		if ce.Timeout() {
			return pkgerrors.OnboardingCollaboratorTimeout, details
		}
		return pkgerrors.OnboardingCollaboratorFailed, details
	case stderrors.As(err, &pe):
		return pkgerrors.WeakPassword, map[string]interface{}{"problems": pe.Problems}
	}
	return err, nil
}

// writeError 统一的错误出口，未识别的错误记日志后按 500 返回
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	writeErrorWith(ctx, c, err, nil)
}

// writeErrorWith 在映射出的 details 上追加字段
func writeErrorWith(ctx context.Context, c *app.RequestContext, err error, extra map[string]interface{}) {
	mapped, details := mapError(err)
	if len(extra) > 0 {
		if details == nil {
			details = make(map[string]interface{}, len(extra))
		}
		for k, v := range extra {
			details[k] = v
		}
	}

	var def pkgerrors.Definition
	if !stderrors.As(mapped, &def) {
		logger.Ctx(ctx).Error("Unhandled request error",
			zap.String("path", string(c.Path())),
			zap.Error(err),
		)
		mapped = pkgerrors.Internal
	}
	response.ErrorWithDetails(ctx, c, mapped, details)
}
