package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FluentPro/pkg/errors"
)

func decodeError(t *testing.T, c *app.RequestContext) ErrorDetail {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(c.Response.Body(), &body))
	return body.Error
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		def    errors.Definition
		status int
	}{
		{errors.OnboardingValidationFailed, http.StatusBadRequest},
		{errors.OnboardingStepInvalid, http.StatusConflict},
		{errors.OnboardingOperationInFlight, http.StatusConflict},
		{errors.OnboardingCollaboratorFailed, http.StatusBadGateway},
		{errors.OnboardingCollaboratorTimeout, http.StatusGatewayTimeout},
		{errors.InvalidCredentials, http.StatusUnauthorized},
		{errors.EmailAlreadyRegistered, http.StatusConflict},
		{errors.RateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.def.Code, func(t *testing.T) {
			c := app.NewContext(0)

			Error(context.Background(), c, fmt.Errorf("service: %w", tt.def))

			assert.Equal(t, tt.status, c.Response.StatusCode())
			detail := decodeError(t, c)
			assert.Equal(t, tt.def.Code, detail.Code)
			assert.Equal(t, tt.def.Message, detail.Message)
		})
	}
}

func TestErrorWithDetails(t *testing.T) {
	c := app.NewContext(0)

	ErrorWithDetails(context.Background(), c, errors.OnboardingValidationFailed, map[string]interface{}{
		"field": "role_title",
	})

	detail := decodeError(t, c)
	assert.Equal(t, "role_title", detail.Details["field"])
}

func TestErrorUnknownIsInternal(t *testing.T) {
	c := app.NewContext(0)

	Error(context.Background(), c, fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, c.Response.StatusCode())
	assert.Equal(t, errors.Internal.Code, decodeError(t, c).Code)
}
