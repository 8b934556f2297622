package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	metrics = nil
	ctx := context.Background()

	assert.NotPanics(t, func() {
		RecordOnboardingOperation(ctx, "select_language", "ok", time.Millisecond)
		RecordPhaseTransition(ctx, "welcome", "intro")
		RecordRecommendation(ctx, "ready")
		RecordRecommendationPoll(ctx, "generating")
	})
}

func TestInitMetrics(t *testing.T) {
	t.Cleanup(func() { metrics = nil })

	require.NoError(t, InitMetrics())
	require.NotNil(t, GetMetrics())

	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordOnboardingOperation(ctx, "finish", "collaborator", 2*time.Second)
		RecordPhaseTransition(ctx, "phase2_complete", "onboarding_complete")
	})
}
