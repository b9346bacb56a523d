package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/materials-api/internal/lib/jwt"
	"github.com/magabrotheeeer/materials-api/internal/lib/password"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UserRepoMock) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type RefreshStoreMock struct{ mock.Mock }

func (m *RefreshStoreMock) StoreRefresh(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	return m.Called(ctx, jti, userID, ttl).Error(0)
}
func (m *RefreshStoreMock) RefreshOwner(ctx context.Context, jti string) (int64, bool, error) {
	args := m.Called(ctx, jti)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const secret = "test-secret"

func newUser(t *testing.T, active bool) *models.User {
	t.Helper()
	hash, err := password.GetHash("s3cret!")
	require.NoError(t, err)
	return &models.User{ID: 7, Email: "u@example.com", PasswordHash: hash, IsActive: active}
}

func newService(users *UserRepoMock, store *RefreshStoreMock) *AuthService {
	return NewAuthService(users, store, jwt.NewJWTMaker(secret, 5*time.Minute, 24*time.Hour), newNoopLogger())
}

func TestAuthService_IssueTokens(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		users, store := new(UserRepoMock), new(RefreshStoreMock)
		users.On("GetUserByEmail", mock.Anything, "u@example.com").Return(newUser(t, true), nil).Once()
		store.On("StoreRefresh", mock.Anything, mock.AnythingOfType("string"), int64(7), 24*time.Hour).Return(nil).Once()
		users.On("UpdateLastLogin", mock.Anything, int64(7), mock.AnythingOfType("time.Time")).Return(nil).Once()
		s := newService(users, store)

		pair, err := s.IssueTokens(context.Background(), "u@example.com", "s3cret!")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
		users.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	tests := []struct {
		name string
		user func(t *testing.T) (*models.User, error)
		pass string
	}{
		{"unknown email", func(_ *testing.T) (*models.User, error) { return nil, models.ErrNotFound }, "s3cret!"},
		{"wrong password", func(t *testing.T) (*models.User, error) { return newUser(t, true), nil }, "nope"},
		{"inactive account", func(t *testing.T) (*models.User, error) { return newUser(t, false), nil }, "s3cret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserRepoMock)
			u, err := tt.user(t)
			if u == nil {
				users.On("GetUserByEmail", mock.Anything, "u@example.com").Return(nil, err).Once()
			} else {
				users.On("GetUserByEmail", mock.Anything, "u@example.com").Return(u, nil).Once()
			}
			s := newService(users, new(RefreshStoreMock))

			_, err = s.IssueTokens(context.Background(), "u@example.com", tt.pass)
			assert.ErrorIs(t, err, models.ErrInvalidCredentials)
			users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	maker := jwt.NewJWTMaker(secret, 5*time.Minute, 24*time.Hour)
	refresh, claims, err := maker.GenerateToken(7, "u@example.com", jwt.RefreshToken)
	require.NoError(t, err)
	access, _, err := maker.GenerateToken(7, "u@example.com", jwt.AccessToken)
	require.NoError(t, err)

	t.Run("known refresh token", func(t *testing.T) {
		users, store := new(UserRepoMock), new(RefreshStoreMock)
		store.On("RefreshOwner", mock.Anything, claims.ID).Return(int64(7), true, nil).Once()
		users.On("GetUserByID", mock.Anything, int64(7)).Return(newUser(t, true), nil).Once()
		s := newService(users, store)

		pair, err := s.Refresh(context.Background(), refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
		assert.Empty(t, pair.Refresh)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		store := new(RefreshStoreMock)
		store.On("RefreshOwner", mock.Anything, claims.ID).Return(int64(0), false, nil).Once()
		s := newService(new(UserRepoMock), store)

		_, err := s.Refresh(context.Background(), refresh)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("access token rejected", func(t *testing.T) {
		s := newService(new(UserRepoMock), new(RefreshStoreMock))

		_, err := s.Refresh(context.Background(), access)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(RefreshStoreMock)
		store.On("RefreshOwner", mock.Anything, claims.ID).Return(int64(0), false, errors.New("redis down")).Once()
		s := newService(new(UserRepoMock), store)

		_, err := s.Refresh(context.Background(), refresh)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrInvalidToken)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	maker := jwt.NewJWTMaker(secret, 5*time.Minute, 24*time.Hour)
	access, _, err := maker.GenerateToken(7, "u@example.com", jwt.AccessToken)
	require.NoError(t, err)

	t.Run("administrator principal", func(t *testing.T) {
		users := new(UserRepoMock)
		u := newUser(t, true)
		u.Groups = []string{policy.AdministratorsGroup}
		users.On("GetUserByID", mock.Anything, int64(7)).Return(u, nil).Once()
		s := newService(users, new(RefreshStoreMock))

		p, err := s.Authenticate(context.Background(), access)
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.UserID)
		assert.Equal(t, policy.RoleAdministrator, p.Role)
	})

	t.Run("inactive account", func(t *testing.T) {
		users := new(UserRepoMock)
		users.On("GetUserByID", mock.Anything, int64(7)).Return(newUser(t, false), nil).Once()
		s := newService(users, new(RefreshStoreMock))

		_, err := s.Authenticate(context.Background(), access)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		s := newService(new(UserRepoMock), new(RefreshStoreMock))

		_, err := s.Authenticate(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})
}
