package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FluentPro/internal/onboarding"
	"FluentPro/internal/service"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/response"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.Definition
	}{
		{"validation", &onboarding.ValidationError{Field: "role_title", Message: "required"}, pkgerrors.OnboardingValidationFailed},
		{"state", &onboarding.StateError{Op: onboarding.OpFinish, Phase: onboarding.PhaseIntro}, pkgerrors.OnboardingStepInvalid},
		{"in flight", onboarding.ErrOperationInFlight, pkgerrors.OnboardingOperationInFlight},
		{"timeout", &onboarding.CollaboratorError{Op: onboarding.OpSubmitRole, Err: onboarding.ErrTimeout}, pkgerrors.OnboardingCollaboratorTimeout},
		{"collaborator", &onboarding.CollaboratorError{Op: onboarding.OpSubmitRole, Err: errors.New("503")}, pkgerrors.OnboardingCollaboratorFailed},
		{"password", &service.PasswordPolicyError{Problems: []string{"too short"}}, pkgerrors.WeakPassword},
		{"definition", fmt.Errorf("wrap: %w", pkgerrors.UserNotFound), pkgerrors.UserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped, _ := mapError(tt.err)
			assert.ErrorIs(t, mapped, tt.want)
		})
	}
}

func TestWriteError_ValidationDetails(t *testing.T) {
	c := app.NewContext(0)

	writeErrorWith(context.Background(), c,
		&onboarding.ValidationError{Field: "native_language", Message: "unknown language"},
		map[string]interface{}{"session": "s-1"})

	assert.Equal(t, http.StatusBadRequest, c.Response.StatusCode())
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(c.Response.Body(), &body))
	assert.Equal(t, pkgerrors.OnboardingValidationFailed.Code, body.Error.Code)
	assert.Equal(t, "native_language", body.Error.Details["field"])
	assert.Equal(t, "s-1", body.Error.Details["session"])
}

func TestWriteError_UnknownIsInternal(t *testing.T) {
	c := app.NewContext(0)

	writeError(context.Background(), c, errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, c.Response.StatusCode())
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(c.Response.Body(), &body))
	assert.Equal(t, pkgerrors.Internal.Code, body.Error.Code)
	assert.Equal(t, pkgerrors.Internal.Message, body.Error.Message)
}
