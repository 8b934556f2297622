package collaborator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"FluentPro/internal/cache"
	"FluentPro/internal/onboarding"
)

// StatusError 协作服务返回非 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collaborator responded %d: %s", e.StatusCode, e.Body)
}

// Doer hertz client 中用到的部分
type Doer interface {
	Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error
	DoDeadline(ctx context.Context, req *protocol.Request, resp *protocol.Response, deadline time.Time) error
}

// endpoint 一个带 bearer token 和熔断器的 JSON 接口
type endpoint struct {
	client  Doer
	baseURL string
	token   string
	breaker *cache.CircuitBreaker
}

func (e endpoint) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return e.breaker.Call(ctx, func(ctx context.Context) error {
		req := protocol.AcquireRequest()
		resp := protocol.AcquireResponse()
		defer protocol.ReleaseRequest(req)
		defer protocol.ReleaseResponse(resp)

		req.SetRequestURI(strings.TrimRight(e.baseURL, "/") + path)
		req.SetMethod(consts.MethodPost)
		req.Header.SetContentTypeBytes([]byte("application/json"))
		if e.token != "" {
			req.SetHeader("Authorization", "Bearer "+e.token)
		}
		req.SetBody(body)

		if err := do(ctx, e.client, req, resp); err != nil {
			return err
		}

		if code := resp.StatusCode(); code < 200 || code >= 300 {
			return &StatusError{StatusCode: code, Body: truncate(string(resp.Body()), 256)}
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// do 以 ctx 的截止时间作为请求超时，超时错误统一包装为 context.DeadlineExceeded
func do(ctx context.Context, c Doer, req *protocol.Request, resp *protocol.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dl, ok := ctx.Deadline()
	if !ok {
		return c.Do(ctx, req, resp)
	}

	err := c.DoDeadline(ctx, req, resp, dl)
	if err != nil && !time.Now().Before(dl) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type roleMatchRequest struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	UserIndustry   string `json:"user_industry"`
}

type roleMatch struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	IndustryName   string   `json:"industry_name"`
	HierarchyLevel string   `json:"hierarchy_level"`
	SearchKeywords []string `json:"search_keywords"`
	CommonTasks    []string `json:"common_tasks"`
	RelevanceScore float64  `json:"relevance_score"`
}

type roleMatchResponse struct {
	Success      bool        `json:"success"`
	MatchedRoles []roleMatch `json:"matched_roles"`
	TotalMatches int         `json:"total_matches"`
	Message      string      `json:"message,omitempty"`
}

// HTTPRoleMatcher 调用远程角色匹配服务
type HTTPRoleMatcher struct {
	endpoint
}

func NewHTTPRoleMatcher(c Doer, baseURL, token string, breaker *cache.CircuitBreaker) *HTTPRoleMatcher {
	return &HTTPRoleMatcher{endpoint{client: c, baseURL: baseURL, token: token, breaker: breaker}}
}

// MatchRoles 保持服务端返回的顺序
func (m *HTTPRoleMatcher) MatchRoles(ctx context.Context, q onboarding.RoleQuery) ([]onboarding.RoleCandidate, error) {
	var resp roleMatchResponse
	err := m.postJSON(ctx, "/onboarding/roles/match", roleMatchRequest{
		JobTitle:       q.Title,
		JobDescription: q.Description,
		UserIndustry:   string(q.Industry),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New("role matcher reported failure: " + resp.Message)
	}

	out := make([]onboarding.RoleCandidate, 0, len(resp.MatchedRoles))
	for _, r := range resp.MatchedRoles {
		tasks := r.CommonTasks
		if len(tasks) == 0 {
			tasks = r.SearchKeywords
		}
		out = append(out, onboarding.RoleCandidate{
			ID:              r.ID,
			Title:           r.Title,
			Description:     r.Description,
			Industry:        r.IndustryName,
			HierarchyLevel:  r.HierarchyLevel,
			CommonTasks:     append([]string{}, tasks...),
			ConfidenceScore: clampScore(r.RelevanceScore),
		})
	}
	return out, nil
}

// clampScore 把远端分数限制在 [0,1]，NaN 视为 0
func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type courseRequest struct {
	RoleID          *string  `json:"role_id"`
	Industry        string   `json:"industry"`
	IdentifiedNeeds []string `json:"identified_needs"`
	NativeLanguage  string   `json:"native_language"`
}

type courseResponse struct {
	Courses                   []onboarding.Course `json:"courses"`
	CustomCoursesBeingCreated bool                `json:"custom_courses_being_created"`
	EstimatedCreationTime     *string             `json:"estimated_creation_time"`
}

// HTTPCourseRecommender 调用远程课程推荐服务
type HTTPCourseRecommender struct {
	endpoint
}

func NewHTTPCourseRecommender(c Doer, baseURL, token string, breaker *cache.CircuitBreaker) *HTTPCourseRecommender {
	return &HTTPCourseRecommender{endpoint{client: c, baseURL: baseURL, token: token, breaker: breaker}}
}

func (r *HTTPCourseRecommender) RecommendCourses(ctx context.Context, q onboarding.CourseQuery) (onboarding.CourseRecommendation, error) {
	needs := q.IdentifiedNeeds
	if needs == nil {
		needs = []string{}
	}

	var resp courseResponse
	err := r.postJSON(ctx, "/onboarding/courses/recommend", courseRequest{
		RoleID:          q.RoleID,
		Industry:        string(q.Industry),
		IdentifiedNeeds: needs,
		NativeLanguage:  string(q.NativeLanguage),
	}, &resp)
	if err != nil {
		return onboarding.CourseRecommendation{}, err
	}

	courses := resp.Courses
	if courses == nil {
		courses = []onboarding.Course{}
	}
	return onboarding.CourseRecommendation{
		Courses:                     courses,
		CustomCoursesBeingGenerated: resp.CustomCoursesBeingCreated,
		EstimatedWait:               resp.EstimatedCreationTime,
	}, nil
}

var _ Doer = (*client.Client)(nil)
