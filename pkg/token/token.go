package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hertz-contrib/jwt"

	"FluentPro/config"
)

const (
	IdentityKey = "uid"
	// TypeClaim 区分 access 和 refresh token
	TypeClaim = "type"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrGeneratorNotInitialized = errors.New("token generator not initialized")
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidTokenType        = errors.New("invalid token type")
	ErrUserIDNotFound          = errors.New("user id not found in token")
)

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware
)

// Pair 一次签发的 access / refresh token
type Pair struct {
	AccessToken  string
	RefreshToken string
	// RefreshID refresh token 的 jti，登出和轮换时用于吊销
	RefreshID string
	ExpiresIn int
}

// RefreshClaims 解析后的 refresh token
type RefreshClaims struct {
	UserID    string
	ID        string
	ExpiresAt time.Time
}

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     accessTTL(),
		MaxRefresh:  refreshTTL(),
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

func accessTTL() time.Duration {
	return time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute
}

func refreshTTL() time.Duration {
	return time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
}

// GenerateTokenPair 生成 access token 和 refresh token
func GenerateTokenPair(userID string) (Pair, error) {
	if sharedGenerator == nil {
		return Pair{}, ErrGeneratorNotInitialized
	}

	now := time.Now()
	expiresAt := now.Add(accessTTL())

	accessToken, err := sign(jwtv5.MapClaims{
		IdentityKey: userID,
		TypeClaim:   TypeAccess,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshID := uuid.NewString()
	refreshToken, err := sign(jwtv5.MapClaims{
		IdentityKey: userID,
		TypeClaim:   TypeRefresh,
		"jti":       refreshID,
		"iat":       now.Unix(),
		"exp":       now.Add(refreshTTL()).Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshID:    refreshID,
		ExpiresIn:    int(accessTTL().Seconds()),
	}, nil
}

func sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(config.Cfg.JWTSecret))
}

// ParseRefreshToken 验证 refresh token 并返回其中的用户 ID 和 jti
func ParseRefreshToken(tokenString string) (RefreshClaims, error) {
	claims := jwtv5.MapClaims{}
	tok, err := jwtv5.ParseWithClaims(tokenString, claims, func(*jwtv5.Token) (interface{}, error) {
		return []byte(config.Cfg.JWTSecret), nil
	}, jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}))
	if err != nil {
		return RefreshClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return RefreshClaims{}, ErrInvalidToken
	}

	if t, _ := claims[TypeClaim].(string); t != TypeRefresh {
		return RefreshClaims{}, ErrInvalidTokenType
	}

	uid, ok := claims[IdentityKey].(string)
	if !ok || uid == "" {
		return RefreshClaims{}, ErrUserIDNotFound
	}
	jti, _ := claims["jti"].(string)

	out := RefreshClaims{UserID: uid, ID: jti}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
