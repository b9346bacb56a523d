// Package subscription переключает подписку пользователя на обновления курса.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// Repository определяет методы хранилища для подписок.
type Repository interface {
	// GetCourse возвращает курс или models.ErrNotFound.
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	// ToggleSubscription удаляет подписку, если она есть, иначе создаёт её.
	ToggleSubscription(ctx context.Context, userID, courseID int64) (models.ToggleResult, error)
}

// SubscriptionService реализует переключение подписки.
type SubscriptionService struct {
	repo    Repository
	toggles *prometheus.CounterVec
	log     *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo Repository, toggles *prometheus.CounterVec, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:    repo,
		toggles: toggles,
		log:     log,
	}
}

// Toggle оформляет подписку p на курс или снимает существующую.
// Повторный вызов возвращает подписку в исходное состояние.
func (s *SubscriptionService) Toggle(ctx context.Context, p *policy.Principal, courseID int64) (models.ToggleResult, error) {
	const op = "subscription.Toggle"
	if err := policy.Authenticated(p); err != nil {
		return "", err
	}

	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.repo.ToggleSubscription(ctx, p.UserID, courseID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if s.toggles != nil {
		s.toggles.WithLabelValues(string(res)).Inc()
	}
	s.log.Info("subscription toggled",
		slog.Int64("user_id", p.UserID),
		slog.Int64("course_id", courseID),
		slog.String("result", string(res)),
	)
	return res, nil
}
