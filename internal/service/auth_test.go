package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FluentPro/internal/model"
	"FluentPro/internal/model/dto"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/repository"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/token"
)

type memAuthUsers struct {
	byEmail map[string]*model.User
}

func (m *memAuthUsers) Create(_ context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return repository.ErrEmailTaken
	}
	u.CreatedAt = time.Now()
	m.byEmail[u.Email] = u
	return nil
}

func (m *memAuthUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memAuthUsers) GetByPublicID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range m.byEmail {
		if u.PublicID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memTokens struct {
	live map[string]string
}

func (m *memTokens) Set(_ context.Context, jti, userID string, _ time.Duration) error {
	m.live[jti] = userID
	return nil
}

func (m *memTokens) Consume(_ context.Context, jti string) (string, error) {
	v := m.live[jti]
	delete(m.live, jti)
	return v, nil
}

func (m *memTokens) Delete(_ context.Context, jti string) error {
	delete(m.live, jti)
	return nil
}

func newAuth(t *testing.T) (*AuthService, *memTokens) {
	t.Helper()
	require.NoError(t, token.Init())

	tokens := &memTokens{live: map[string]string{}}
	next := int64(1000)
	s := NewAuthService(&memAuthUsers{byEmail: map[string]*model.User{}}, tokens, func() (int64, error) {
		next++
		return next, nil
	})
	s.bcryptCost = 4
	return s, tokens
}

var signup = dto.SignupRequest{FullName: " Ana Silva ", Email: "Ana@Example.com", Password: "Passw0rd!"}

func TestAuth_SignupAndLogin(t *testing.T) {
	s, tokens := newAuth(t)
	ctx := context.Background()

	resp, err := s.Signup(ctx, signup)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "1001", resp.User.ID)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "Ana Silva", resp.User.FullName)
	assert.Equal(t, onboarding.StatusNotStarted, resp.User.OnboardingStatus)
	assert.Len(t, tokens.live, 1)

	_, err = s.Signup(ctx, signup)
	assert.ErrorIs(t, err, pkgerrors.EmailAlreadyRegistered)

	login, err := s.Login(ctx, dto.LoginRequest{Email: "ANA@example.com ", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "1001", login.User.ID)

	_, err = s.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, pkgerrors.InvalidCredentials)
	_, err = s.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, pkgerrors.InvalidCredentials)
}

func TestAuth_SignupValidation(t *testing.T) {
	s, _ := newAuth(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, dto.SignupRequest{FullName: "Ana", Email: "not-an-email", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, pkgerrors.InvalidRequest)

	_, err = s.Signup(ctx, dto.SignupRequest{FullName: "", Email: "ana@example.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, pkgerrors.InvalidRequest)

	_, err = s.Signup(ctx, dto.SignupRequest{FullName: "Ana", Email: "ana@example.com", Password: "short"})
	var pe *PasswordPolicyError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, pkgerrors.WeakPassword)
	assert.NotEmpty(t, pe.Problems)
}

func TestAuth_RefreshRotatesToken(t *testing.T) {
	s, tokens := newAuth(t)
	ctx := context.Background()

	first, err := s.Signup(ctx, signup)
	require.NoError(t, err)

	second, err := s.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Len(t, tokens.live, 1)

	// 旧 token 只能用一次
	_, err = s.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, pkgerrors.TokenInvalid)

	_, err = s.Refresh(ctx, second.AccessToken)
	assert.ErrorIs(t, err, pkgerrors.TokenInvalid)
}

func TestAuth_Logout(t *testing.T) {
	s, tokens := newAuth(t)
	ctx := context.Background()

	resp, err := s.Signup(ctx, signup)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, resp.RefreshToken))
	assert.Empty(t, tokens.live)

	_, err = s.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, pkgerrors.TokenInvalid)

	assert.ErrorIs(t, s.Logout(ctx, "garbage"), pkgerrors.TokenInvalid)
}
