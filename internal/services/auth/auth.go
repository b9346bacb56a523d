// Package auth выдаёт и обновляет JWT пользователей и опознаёт пользователя по access-токену.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/lib/jwt"
	"github.com/magabrotheeeer/materials-api/internal/lib/password"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByEmail возвращает пользователя по email или models.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID возвращает пользователя по ID или models.ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// UpdateLastLogin фиксирует время последнего входа.
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// RefreshStore хранит jti выданных refresh-токенов.
type RefreshStore interface {
	StoreRefresh(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	RefreshOwner(ctx context.Context, jti string) (int64, bool, error)
}

// AuthService отвечает за выдачу токенов и опознание пользователя.
type AuthService struct {
	users    UserRepository
	refresh  RefreshStore
	jwtMaker jwt.Maker
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, refresh RefreshStore, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		refresh:  refresh,
		jwtMaker: jwtMaker,
		log:      log,
		now:      time.Now,
	}
}

// IssueTokens проверяет email и пароль и выдаёт пару access/refresh.
// Неизвестный email, неверный пароль и неактивная учётная запись дают models.ErrInvalidCredentials.
func (s *AuthService) IssueTokens(ctx context.Context, email, rawPassword string) (*models.TokenPair, error) {
	const op = "auth.IssueTokens"
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil || !user.IsActive {
		return nil, models.ErrInvalidCredentials
	}

	access, _, err := s.jwtMaker.GenerateToken(user.ID, user.Email, jwt.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, claims, err := s.jwtMaker.GenerateToken(user.ID, user.Email, jwt.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.refresh.StoreRefresh(ctx, claims.ID, user.ID, claims.ExpiresAt.Sub(claims.IssuedAt.Time)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.log.Warn("failed to update last login", slog.Int64("user_id", user.ID), sl.Err(err))
	}
	s.log.Info("tokens issued", slog.Int64("user_id", user.ID))
	return &models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "auth.Refresh"
	claims, err := s.jwtMaker.ParseToken(refreshToken, jwt.RefreshToken)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	owner, found, err := s.refresh.RefreshOwner(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found || owner != claims.UserID {
		return nil, models.ErrInvalidToken
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	access, _, err := s.jwtMaker.GenerateToken(user.ID, user.Email, jwt.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.TokenPair{Access: access}, nil
}

// Authenticate разбирает access-токен, загружает пользователя и строит Principal.
// Любая проблема с токеном или учётной записью даёт models.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*policy.Principal, error) {
	claims, err := s.jwtMaker.ParseToken(accessToken, jwt.AccessToken)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return policy.Resolve(user), nil
}

func (s *AuthService) activeUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "auth.activeUser"
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil, models.ErrInvalidToken
	}
	return user, nil
}
