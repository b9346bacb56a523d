// Package account реализует регистрацию и профили пользователей,
// создание суперпользователя и периодическую деактивацию неактивных учётных записей.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/materials-api/internal/lib/password"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// DefaultInactiveAfter — срок без входа, после которого учётная запись деактивируется.
const DefaultInactiveAfter = 4 * 7 * 24 * time.Hour

const maxProfilePayments = 100

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch, passwordHash *string) error
	DeleteUser(ctx context.Context, id int64) error
	ListActiveUsersWithoutLogin(ctx context.Context) ([]int64, error)
	DeactivateUsersLoggedInBefore(ctx context.Context, cutoff time.Time) ([]int64, error)
	ListPayments(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	AddUserToGroup(ctx context.Context, userID int64, group string) error
}

// AccountService реализует операции над учётными записями.
type AccountService struct {
	repo          Repository
	inactiveAfter time.Duration
	deactivated   prometheus.Counter
	log           *slog.Logger
	now           func() time.Time
}

// New создает новый экземпляр AccountService. Если inactiveAfter не задан, используется DefaultInactiveAfter.
func New(repo Repository, inactiveAfter time.Duration, deactivated prometheus.Counter, log *slog.Logger) *AccountService {
	if inactiveAfter <= 0 {
		inactiveAfter = DefaultInactiveAfter
	}
	return &AccountService{
		repo:          repo,
		inactiveAfter: inactiveAfter,
		deactivated:   deactivated,
		log:           log,
		now:           time.Now,
	}
}

// Register создаёт активную учётную запись. Пароль хешируется до сохранения,
// исходное значение нигде не хранится и не возвращается.
func (s *AccountService) Register(ctx context.Context, req models.DummyUser) (*models.User, error) {
	const op = "account.Register"
	u, err := s.create(ctx, req.Email, req.Password, func(u *models.User) {
		u.Phone = req.Phone
		u.City = req.City
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.Int64("user_id", u.ID))
	return u, nil
}

// CreateSuperuser создаёт активного суперпользователя с правами персонала.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "account.CreateSuperuser"
	u, err := s.create(ctx, email, rawPassword, func(u *models.User) {
		u.IsSuperuser = true
		u.IsStaff = true
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("superuser created", slog.Int64("user_id", u.ID))
	return u, nil
}

func (s *AccountService) create(ctx context.Context, email, rawPassword string, fill func(u *models.User)) (*models.User, error) {
	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		IsActive:     true,
	}
	fill(u)
	if _, err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// AddToGroup включает пользователя с указанным email в группу group.
// Включение в policy.AdministratorsGroup даёт доступ ко всем курсам и урокам.
func (s *AccountService) AddToGroup(ctx context.Context, email, group string) (*models.User, error) {
	const op = "account.AddToGroup"
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, models.NewValidationError("group", "This field may not be blank.")
	}
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.AddUserToGroup(ctx, u.ID, group); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user added to group", slog.Int64("user_id", u.ID), slog.String("group", group))
	return u, nil
}

// View возвращает полный профиль с историей платежей, если p смотрит сам на себя,
// и *models.PublicProfile для остальных.
func (s *AccountService) View(ctx context.Context, p *policy.Principal, id int64) (any, error) {
	const op = "account.View"
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindAccount, policy.ActionRetrieve, &u.ID); err != nil {
		return nil, err
	}
	if p.UserID != u.ID {
		return models.PublicProfileOf(u), nil
	}

	payments, err := s.repo.ListPayments(ctx, models.PaymentFilter{
		UserID:    &u.ID,
		OrderDesc: true,
		Page:      models.Page{Limit: maxProfilePayments},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return &models.Profile{
		ID:       u.ID,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Phone:    u.Phone,
		City:     u.City,
		Payments: payments,
	}, nil
}

// List возвращает страницу публичных профилей.
func (s *AccountService) List(ctx context.Context, p *policy.Principal, page models.Page) ([]*models.PublicProfile, error) {
	const op = "account.List"
	if err := policy.Authorize(p, policy.KindAccount, policy.ActionList, nil); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make([]*models.PublicProfile, 0, len(users))
	for _, u := range users {
		result = append(result, models.PublicProfileOf(u))
	}
	return result, nil
}

// Update меняет профиль. Изменять можно только собственную учётную запись.
func (s *AccountService) Update(ctx context.Context, p *policy.Principal, id int64, patch models.UserPatch) (*models.PublicProfile, error) {
	const op = "account.Update"
	if err := s.self(ctx, p, id, policy.ActionUpdate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	var hash *string
	if patch.Password != nil {
		h, err := password.GetHash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		hash = &h
	}
	if err := s.repo.UpdateUser(ctx, id, patch, hash); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return models.PublicProfileOf(u), nil
}

// Delete удаляет собственную учётную запись.
func (s *AccountService) Delete(ctx context.Context, p *policy.Principal, id int64) error {
	const op = "account.Delete"
	if err := s.self(ctx, p, id, policy.ActionDelete); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// normalizeEmail приводит email к нижнему регистру: адреса, различающиеся только регистром,
// принадлежат одной учётной записи.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) self(ctx context.Context, p *policy.Principal, id int64, action policy.Action) error {
	if err := policy.Authenticated(p); err != nil {
		return err
	}
	if _, err := s.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return policy.Authorize(p, policy.KindAccount, action, &id)
}

// Sweep деактивирует активные учётные записи, последний вход которых был раньше now − inactiveAfter.
// Записи без даты входа пропускаются и попадают в лог. Повторный запуск безопасен.
func (s *AccountService) Sweep(ctx context.Context) (int, error) {
	const op = "account.Sweep"
	log := s.log.With(slog.String("op", op))

	never, err := s.repo.ListActiveUsersWithoutLogin(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		log.Warn("failed to list users without login", sl.Err(err))
	}
	for _, id := range never {
		log.Info("user has never logged in, skipping", slog.Int64("user_id", id))
	}

	cutoff := s.now().Add(-s.inactiveAfter)
	ids, err := s.repo.DeactivateUsersLoggedInBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if s.deactivated != nil {
		s.deactivated.Add(float64(len(ids)))
	}
	for _, id := range ids {
		log.Info("user deactivated", slog.Int64("user_id", id))
	}
	log.Info("sweep finished", slog.Int("deactivated", len(ids)), slog.Time("cutoff", cutoff))
	return len(ids), nil
}
