package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"FluentPro/internal/cache"
	"FluentPro/internal/model"
	"FluentPro/internal/model/dto"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/repository"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/logger"
	"FluentPro/storage/database"
)

// api 中设计的 user_ID 是 public_id

type userReader interface {
	GetByPublicID(ctx context.Context, publicID int64) (*model.User, error)
}

type recommendationReader interface {
	GetByUserID(ctx context.Context, userID int64) (*model.CourseRecommendation, error)
}

var (
	userService *UserService
	userOnce    sync.Once
)

func User() *UserService {
	userOnce.Do(func() {
		db := database.DB()
		userService = NewUserService(
			repository.NewUserRepository(db),
			repository.NewCourseRecommendationRepository(db),
			cache.RecommendationProtectedCache,
		)
	})
	return userService
}

type UserService struct {
	users   userReader
	courses recommendationReader
	// cache 为空时直接读库
	cache *cache.ProtectedCache
}

func NewUserService(users userReader, courses recommendationReader, c *cache.ProtectedCache) *UserService {
	return &UserService{users: users, courses: courses, cache: c}
}

// ParseUserID 把 token 中的字符串 ID 转成 public_id
func ParseUserID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.InvalidUserID
	}
	return id, nil
}

// GetProfile 获取用户资料和引导状态
func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserProfile, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByPublicID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return toUserProfile(user), nil
}

// GetCourses 获取引导完成后分配的课程，还没有记录时返回 OnboardingSessionNotFound
func (s *UserService) GetCourses(ctx context.Context, userID string) (*dto.CoursesResponse, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	key := strconv.FormatInt(id, 10)

	if s.cache != nil {
		var cached dto.CoursesResponse
		hit, empty, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			logger.Logger.Warn("Failed to read recommendation cache",
				zap.Int64("user_id", id),
				zap.Error(err),
			)
		case hit && empty:
			return nil, pkgerrors.OnboardingSessionNotFound
		case hit:
			return &cached, nil
		}
	}

	rec, err := s.courses.GetByUserID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			s.fillCourses(ctx, key, nil)
			return nil, pkgerrors.OnboardingSessionNotFound
		}
		return nil, fmt.Errorf("failed to query course recommendation: %w", err)
	}

	resp := &dto.CoursesResponse{
		Status:    string(rec.Status),
		Courses:   rec.Courses,
		Attempts:  rec.Attempts,
		UpdatedAt: rec.UpdatedAt,

		SelectedCourseID: rec.SelectedCourseID,
	}
	if resp.Courses == nil {
		resp.Courses = []onboarding.Course{}
	}
	s.fillCourses(ctx, key, resp)
	return resp, nil
}

func (s *UserService) fillCourses(ctx context.Context, key string, resp *dto.CoursesResponse) {
	if s.cache == nil {
		return
	}
	var value interface{}
	if resp != nil {
		value = resp
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logger.Logger.Warn("Failed to write recommendation cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func toUserProfile(u *model.User) *dto.UserProfile {
	return &dto.UserProfile{
		ID:                    strconv.FormatInt(u.PublicID, 10),
		Email:                 u.Email,
		FullName:              u.FullName,
		OnboardingStatus:      u.OnboardingStatus,
		OnboardingCompletedAt: u.OnboardingCompletedAt,
		NativeLanguage:        u.NativeLanguage,
		Industry:              u.Industry,
		SelectedRoleID:        u.SelectedRoleID,
		SelectedRoleTitle:     u.SelectedRoleTitle,
		CustomRoleTitle:       u.CustomRoleTitle,
		CustomRoleDescription: u.CustomRoleDescription,
		CreatedAt:             u.CreatedAt,
	}
}
