package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FluentPro/internal/onboarding"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--provider", "mock"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMatchCommand(t *testing.T) {
	out, err := run(t, "match", "--title", "Financial Analyst", "--industry", "Banking & Finance")
	require.NoError(t, err)

	var candidates []onboarding.RoleCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &candidates))
	require.NotEmpty(t, candidates)
	assert.Equal(t, "Financial Analyst", candidates[0].Title)
}

func TestMatchCommandRejectsUnknownIndustry(t *testing.T) {
	_, err := run(t, "match", "--title", "Analyst", "--industry", "Piracy")
	assert.Error(t, err)
}

func TestRecommendCommand(t *testing.T) {
	out, err := run(t, "recommend", "--industry", "Banking & Finance", "--need", "Clients: Meetings")
	require.NoError(t, err)

	var got struct {
		Outcome onboarding.CourseOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, onboarding.CoursesGenerating, got.Outcome)
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Investment Banker")
}
