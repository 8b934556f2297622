package collaborator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FluentPro/internal/cache"
	"FluentPro/internal/onboarding"
)

// fakeDoer 记录请求并返回预设响应
type fakeDoer struct {
	status int
	body   string
	err    error
	wait   time.Duration

	gotURI    string
	gotAuth   string
	gotBody   []byte
	deadlines int
}

func (f *fakeDoer) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	f.gotURI = req.URI().String()
	f.gotAuth = string(req.Header.Peek("Authorization"))
	f.gotBody = append([]byte(nil), req.Body()...)
	if f.err != nil {
		return f.err
	}
	resp.SetStatusCode(f.status)
	resp.SetBody([]byte(f.body))
	return nil
}

func (f *fakeDoer) DoDeadline(ctx context.Context, req *protocol.Request, resp *protocol.Response, deadline time.Time) error {
	f.deadlines++
	if f.wait > 0 {
		time.Sleep(time.Until(deadline))
		return errors.New("timeout")
	}
	return f.Do(ctx, req, resp)
}

func newBreaker() *cache.CircuitBreaker {
	return cache.NewCircuitBreaker("test", 2, time.Minute)
}

func TestHTTPRoleMatcher_Success(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{
		"success": true,
		"matched_roles": [
			{"id": "b", "title": "Data Analyst", "description": "d", "industry_name": "Technology",
			 "hierarchy_level": "associate", "search_keywords": ["sql"], "relevance_score": 0.9},
			{"id": "a", "title": "BI Engineer", "description": "d", "industry_name": "Technology",
			 "hierarchy_level": "senior", "common_tasks": ["dashboards"], "relevance_score": 0.4}
		],
		"total_matches": 2
	}`}
	m := NewHTTPRoleMatcher(doer, "http://matcher/api/v1/", "secret", newBreaker())

	got, err := m.MatchRoles(context.Background(), onboarding.RoleQuery{
		Title: "Analyst", Description: "reports", Industry: onboarding.IndustryTechnology,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, []string{"sql"}, got[0].CommonTasks)
	assert.Equal(t, []string{"dashboards"}, got[1].CommonTasks)
	assert.InDelta(t, 0.9, got[0].ConfidenceScore, 1e-9)

	assert.Equal(t, "http://matcher/api/v1/onboarding/roles/match", doer.gotURI)
	assert.Equal(t, "Bearer secret", doer.gotAuth)
	var sent map[string]string
	require.NoError(t, json.Unmarshal(doer.gotBody, &sent))
	assert.Equal(t, map[string]string{
		"job_title": "Analyst", "job_description": "reports", "user_industry": "Technology",
	}, sent)
}

func TestHTTPRoleMatcher_EmptyMatches(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{"success": true, "matched_roles": [], "total_matches": 0}`}
	got, err := NewHTTPRoleMatcher(doer, "http://m", "", newBreaker()).
		MatchRoles(context.Background(), onboarding.RoleQuery{Title: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, doer.gotAuth)
}

func TestHTTPRoleMatcher_Failures(t *testing.T) {
	ctx := context.Background()

	doer := &fakeDoer{status: 503, body: "unavailable"}
	m := NewHTTPRoleMatcher(doer, "http://m", "", newBreaker())
	_, err := m.MatchRoles(ctx, onboarding.RoleQuery{Title: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.StatusCode)

	// 连续两次失败后熔断，请求不再发出
	_, err = m.MatchRoles(ctx, onboarding.RoleQuery{Title: "x"})
	require.Error(t, err)
	doer.gotURI = ""
	_, err = m.MatchRoles(ctx, onboarding.RoleQuery{Title: "x"})
	assert.ErrorIs(t, err, cache.ErrBreakerOpen)
	assert.Empty(t, doer.gotURI)

	bad := &fakeDoer{status: 200, body: `{"success": false, "message": "index offline"}`}
	_, err = NewHTTPRoleMatcher(bad, "http://m", "", newBreaker()).MatchRoles(ctx, onboarding.RoleQuery{Title: "x"})
	assert.ErrorContains(t, err, "index offline")
}

func TestHTTPRoleMatcher_ClampsScores(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{
		"success": true,
		"matched_roles": [
			{"id": "a", "title": "A", "relevance_score": 1.7},
			{"id": "b", "title": "B", "relevance_score": -0.4},
			{"id": "c", "title": "C", "relevance_score": 0.6}
		]
	}`}
	got, err := NewHTTPRoleMatcher(doer, "http://m", "", newBreaker()).
		MatchRoles(context.Background(), onboarding.RoleQuery{Title: "x"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].ConfidenceScore)
	assert.Equal(t, 0.0, got[1].ConfidenceScore)
	assert.Equal(t, 0.6, got[2].ConfidenceScore)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(math.NaN()))
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 1.0, clampScore(2))
	assert.Equal(t, 0.25, clampScore(0.25))
}

func TestHTTPCourseRecommender(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{
		"courses": [],
		"custom_courses_being_created": true,
		"estimated_creation_time": "24-48 hours"
	}`}
	r := NewHTTPCourseRecommender(doer, "http://rec", "", newBreaker())

	got, err := r.RecommendCourses(context.Background(), onboarding.CourseQuery{
		Industry:       onboarding.IndustryLegal,
		NativeLanguage: onboarding.LanguageGerman,
	})
	require.NoError(t, err)
	assert.Equal(t, onboarding.CoursesGenerating, got.Outcome())
	require.NotNil(t, got.EstimatedWait)
	assert.Equal(t, "24-48 hours", *got.EstimatedWait)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(doer.gotBody, &sent))
	assert.Nil(t, sent["role_id"])
	assert.Equal(t, []interface{}{}, sent["identified_needs"])
	assert.Equal(t, "German", sent["native_language"])
}

func TestHTTPDeadlineMapsToDeadlineExceeded(t *testing.T) {
	doer := &fakeDoer{wait: time.Millisecond}
	m := NewHTTPRoleMatcher(doer, "http://m", "", newBreaker())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.MatchRoles(ctx, onboarding.RoleQuery{Title: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, doer.deadlines)
}
