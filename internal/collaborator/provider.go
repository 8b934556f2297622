package collaborator

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"FluentPro/config"
	"FluentPro/internal/cache"
	"FluentPro/internal/onboarding"
	"FluentPro/pkg/logger"
)

const (
	ProviderMock = "mock"
	ProviderHTTP = "http"
)

// Set 会话使用的两个协作方
type Set struct {
	RoleMatcher       onboarding.RoleMatcher
	CourseRecommender onboarding.CourseRecommender
}

// New 按 COLLABORATOR_PROVIDER 创建协作方
func New(cfg *config.Config) (Set, error) {
	switch cfg.CollaboratorProvider {
	case ProviderHTTP:
		return newHTTP(cfg)
	case ProviderMock, "":
		catalog, err := LoadCatalog(afero.NewOsFs(), cfg.MockCatalogPath)
		if err != nil {
			return Set{}, err
		}
		logger.Logger.Info("Using mock collaborators",
			zap.Int("roles", len(catalog.Roles)),
			zap.Int("courses", len(catalog.Courses)),
			zap.Duration("latency", cfg.MockLatency),
		)
		return Set{
			RoleMatcher: guardedMatcher{NewMockRoleMatcher(catalog, cfg.MockLatency),
				cache.NewCircuitBreaker("role_matcher", cfg.CollaboratorBreakerMax, cfg.CollaboratorBreakerWait)},
			CourseRecommender: guardedRecommender{NewMockCourseRecommender(catalog, cfg.MockLatency),
				cache.NewCircuitBreaker("course_recommender", cfg.CollaboratorBreakerMax, cfg.CollaboratorBreakerWait)},
		}, nil
	default:
		return Set{}, fmt.Errorf("unknown collaborator provider %q", cfg.CollaboratorProvider)
	}
}

// guardedMatcher 给没有内置熔断的匹配器加上熔断
type guardedMatcher struct {
	next    onboarding.RoleMatcher
	breaker *cache.CircuitBreaker
}

func (g guardedMatcher) MatchRoles(ctx context.Context, q onboarding.RoleQuery) ([]onboarding.RoleCandidate, error) {
	return cache.Execute(ctx, g.breaker, func(ctx context.Context) ([]onboarding.RoleCandidate, error) {
		return g.next.MatchRoles(ctx, q)
	})
}

type guardedRecommender struct {
	next    onboarding.CourseRecommender
	breaker *cache.CircuitBreaker
}

func (g guardedRecommender) RecommendCourses(ctx context.Context, q onboarding.CourseQuery) (onboarding.CourseRecommendation, error) {
	return cache.Execute(ctx, g.breaker, func(ctx context.Context) (onboarding.CourseRecommendation, error) {
		return g.next.RecommendCourses(ctx, q)
	})
}

func newHTTP(cfg *config.Config) (Set, error) {
	opts := []hertzconfig.ClientOption{
		client.WithDialTimeout(5 * time.Second),
		client.WithMaxConnsPerHost(64),
		client.WithMaxIdleConnDuration(90 * time.Second),
	}

	var mw client.Middleware
	if cfg.OTelEnabled {
		mw = tracing.ClientMiddleware()
	}

	c, err := client.NewClient(opts...)
	if err != nil {
		return Set{}, fmt.Errorf("create http client: %w", err)
	}
	if mw != nil {
		c.Use(mw)
	}

	logger.Logger.Info("Using HTTP collaborators",
		zap.String("role_matcher", cfg.RoleMatcherURL),
		zap.String("course_recommender", cfg.CourseRecommenderURL),
	)

	return Set{
		RoleMatcher: NewHTTPRoleMatcher(c, cfg.RoleMatcherURL, cfg.RoleMatcherToken,
			cache.NewCircuitBreaker("role_matcher", cfg.CollaboratorBreakerMax, cfg.CollaboratorBreakerWait)),
		CourseRecommender: NewHTTPCourseRecommender(c, cfg.CourseRecommenderURL, cfg.CourseRecommenderToken,
			cache.NewCircuitBreaker("course_recommender", cfg.CollaboratorBreakerMax, cfg.CollaboratorBreakerWait)),
	}, nil
}
