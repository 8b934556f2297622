package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"FluentPro/config"
	"FluentPro/internal/cache"
	"FluentPro/internal/model"
	"FluentPro/internal/model/dto"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/repository"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/snowflake"
	"FluentPro/pkg/token"
	"FluentPro/storage/database"
	"FluentPro/utils"
)

// authUserStore 认证需要的用户读写
type authUserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByPublicID(ctx context.Context, publicID int64) (*model.User, error)
}

// RefreshTokenStore 记录有效的 refresh token，每个 jti 只能使用一次
type RefreshTokenStore interface {
	Set(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
	Delete(ctx context.Context, jti string) error
}

type redisRefreshTokens struct{}

func (redisRefreshTokens) Set(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return cache.SetRefreshToken(ctx, jti, userID, ttl)
}

func (redisRefreshTokens) Consume(ctx context.Context, jti string) (string, error) {
	return cache.ConsumeRefreshToken(ctx, jti)
}

func (redisRefreshTokens) Delete(ctx context.Context, jti string) error {
	return cache.DeleteRefreshToken(ctx, jti)
}

var (
	authService *AuthService
	authOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = NewAuthService(
			repository.NewUserRepository(database.DB()),
			redisRefreshTokens{},
			snowflake.NextID,
		)
	})
	return authService
}

type AuthService struct {
	users      authUserStore
	tokens     RefreshTokenStore
	nextID     func() (int64, error)
	bcryptCost int
	refreshTTL time.Duration
}

func NewAuthService(users authUserStore, tokens RefreshTokenStore, nextID func() (int64, error)) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		nextID:     nextID,
		bcryptCost: config.Cfg.BcryptCost,
		refreshTTL: time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour,
	}
}

// PasswordPolicyError 密码不满足规则，Problems 会放进错误响应的 details
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *PasswordPolicyError) Unwrap() error { return pkgerrors.WeakPassword }

// Signup 邮箱注册，成功后直接签发 token，引导状态为 not_started
func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.AuthResponse, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := utils.NormalizeEmail(req.Email)

	if fullName == "" || !utils.ValidateEmail(email) {
		return nil, pkgerrors.InvalidRequest
	}
	if problems := utils.ValidatePassword(req.Password); len(problems) > 0 {
		return nil, &PasswordPolicyError{Problems: problems}
	}

	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	user := &model.User{
		PublicID:         publicID,
		Email:            email,
		PasswordHash:     hash,
		FullName:         fullName,
		OnboardingStatus: onboarding.StatusNotStarted,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrEmailTaken) {
			return nil, pkgerrors.EmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Logger.Info("User signed up",
		zap.Int64("user_id", publicID),
	)

	return s.issue(ctx, user)
}

// Login 邮箱密码登录，邮箱不存在和密码错误返回同一个错误
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.InvalidRequest
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.InvalidCredentials
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.Logger.Info("Login rejected",
			zap.Int64("user_id", user.PublicID),
		)
		return nil, pkgerrors.InvalidCredentials
	}

	return s.issue(ctx, user)
}

// Refresh 轮换 refresh token：旧 token 作废后签发新的一对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	claims, err := token.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, pkgerrors.TokenInvalid
	}

	owner, err := s.tokens.Consume(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if owner == "" || owner != claims.UserID {
		logger.Logger.Warn("Refresh token reused or revoked",
			zap.String("user_id", claims.UserID),
		)
		return nil, pkgerrors.TokenInvalid
	}

	publicID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, pkgerrors.TokenInvalid
	}

	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.TokenInvalid
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return s.issue(ctx, user)
}

// Logout 吊销 refresh token，access token 在过期前仍然有效
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := token.ParseRefreshToken(refreshToken)
	if err != nil {
		return pkgerrors.TokenInvalid
	}
	if err := s.tokens.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*dto.AuthResponse, error) {
	userID := strconv.FormatInt(user.PublicID, 10)

	pair, err := token.GenerateTokenPair(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	if err := s.tokens.Set(ctx, pair.RefreshID, userID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         toUserProfile(user),
	}, nil
}
