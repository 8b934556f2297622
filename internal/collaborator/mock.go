package collaborator

import (
	"context"
	"sort"
	"strings"
	"time"

	"FluentPro/internal/onboarding"
)

const (
	titleExactScore    = 0.5
	titleContainsScore = 0.3
	sharedWordScore    = 0.02
	industryScore      = 0.2
	maxConfidence      = 0.95
	maxMatches         = 3
)

// MockRoleMatcher 基于本地目录打分的角色匹配，用于开发环境和命令行
type MockRoleMatcher struct {
	catalog *Catalog
	latency time.Duration
}

func NewMockRoleMatcher(catalog *Catalog, latency time.Duration) *MockRoleMatcher {
	return &MockRoleMatcher{catalog: catalog, latency: latency}
}

// MatchRoles 标题完全相同 +0.5，互相包含 +0.3，描述每个共同单词 +0.02，
// 行业相同或跨行业 +0.2，上限 0.95，取前三
func (m *MockRoleMatcher) MatchRoles(ctx context.Context, q onboarding.RoleQuery) ([]onboarding.RoleCandidate, error) {
	if err := sleep(ctx, m.latency); err != nil {
		return nil, err
	}

	title := strings.ToLower(strings.TrimSpace(q.Title))
	words := wordSet(q.Description)

	type scored struct {
		role  catalogRole
		score float64
	}
	var matches []scored
	for _, role := range m.catalog.Roles {
		score := 0.0

		roleTitle := strings.ToLower(role.Title)
		switch {
		case roleTitle == title:
			score += titleExactScore
		case title != "" && (strings.Contains(roleTitle, title) || strings.Contains(title, roleTitle)):
			score += titleContainsScore
		}

		for w := range wordSet(role.Description) {
			if _, ok := words[w]; ok {
				score += sharedWordScore
			}
		}

		if role.Industry == string(q.Industry) || role.Industry == AnyIndustry {
			score += industryScore
		}

		if score > 0 {
			matches = append(matches, scored{role: role, score: min(score, maxConfidence)})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	out := make([]onboarding.RoleCandidate, 0, len(matches))
	for _, s := range matches {
		out = append(out, s.role.candidate(s.score))
	}
	return out, nil
}

// MockCourseRecommender 有角色 ID 时返回目录课程，否则返回定制课程生成中
type MockCourseRecommender struct {
	catalog *Catalog
	latency time.Duration
}

func NewMockCourseRecommender(catalog *Catalog, latency time.Duration) *MockCourseRecommender {
	return &MockCourseRecommender{catalog: catalog, latency: latency}
}

func (m *MockCourseRecommender) RecommendCourses(ctx context.Context, q onboarding.CourseQuery) (onboarding.CourseRecommendation, error) {
	if err := sleep(ctx, m.latency); err != nil {
		return onboarding.CourseRecommendation{}, err
	}

	if q.RoleID == nil {
		wait := m.catalog.CustomCourseWait
		return onboarding.CourseRecommendation{
			Courses:                     []onboarding.Course{},
			CustomCoursesBeingGenerated: true,
			EstimatedWait:               &wait,
		}, nil
	}

	courses := make([]onboarding.Course, 0, len(m.catalog.Courses))
	for _, c := range m.catalog.Courses {
		courses = append(courses, c.course())
	}
	return onboarding.CourseRecommendation{Courses: courses}, nil
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
