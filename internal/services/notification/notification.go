// Package notification обрабатывает задачи очереди уведомлений:
// рассылку подписчикам курса после его обновления.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

// DefaultStaleAfter — минимальный перерыв между обновлениями курса, после которого подписчики получают письмо.
const DefaultStaleAfter = 4 * time.Hour

const markerTTL = 7 * 24 * time.Hour

// Repository определяет методы хранилища, нужные обработчику.
type Repository interface {
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	CourseSubscriberEmails(ctx context.Context, courseID int64) ([]string, error)
}

// Dedup хранит отметки об уже отправленных рассылках.
type Dedup interface {
	WasNotified(ctx context.Context, courseID int64, lastUpdate time.Time) (bool, error)
	MarkNotified(ctx context.Context, courseID int64, lastUpdate time.Time, ttl time.Duration) error
}

// Mailer отправляет одно письмо нескольким адресатам.
type Mailer interface {
	Send(to []string, subject, body string) error
}

// Service обрабатывает задачи course.updated.
type Service struct {
	repo       Repository
	dedup      Dedup
	mailer     Mailer
	staleAfter time.Duration
	sent       *prometheus.CounterVec
	log        *slog.Logger
}

// New создает новый экземпляр Service. Если staleAfter не задан, используется DefaultStaleAfter.
func New(repo Repository, dedup Dedup, mailer Mailer, staleAfter time.Duration, sent *prometheus.CounterVec, log *slog.Logger) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{
		repo:       repo,
		dedup:      dedup,
		mailer:     mailer,
		staleAfter: staleAfter,
		sent:       sent,
		log:        log,
	}
}

// HandleCourseUpdated разбирает тело сообщения из очереди и выполняет задачу.
// Ошибка разбора не повторяется: сообщение подтверждается и пропускается.
func (s *Service) HandleCourseUpdated(ctx context.Context, body []byte) error {
	var task models.CourseUpdatedTask
	if err := json.Unmarshal(body, &task); err != nil {
		s.log.Error("failed to unmarshal course update task", sl.Err(err))
		s.count("malformed")
		return nil
	}
	return s.NotifySubscribers(ctx, task)
}

// NotifySubscribers отправляет подписчикам одно письмо, если с прошлого обновления курса
// прошло больше staleAfter. Ошибка отправки возвращается вызывающему для повторной доставки.
func (s *Service) NotifySubscribers(ctx context.Context, task models.CourseUpdatedTask) error {
	const op = "notification.NotifySubscribers"
	log := s.log.With(slog.String("op", op), slog.Int64("course_id", task.CourseID))

	course, err := s.repo.GetCourse(ctx, task.CourseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Info("course no longer exists, skipping")
			s.count("skipped")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	elapsed := course.LastUpdate.Sub(task.PriorUpdate)
	if elapsed <= s.staleAfter {
		log.Debug("course updated recently, skipping", slog.Duration("elapsed", elapsed))
		s.count("skipped")
		return nil
	}

	done, err := s.dedup.WasNotified(ctx, course.ID, course.LastUpdate)
	if err != nil {
		log.Warn("failed to check notification marker", sl.Err(err))
	}
	if done {
		log.Info("subscribers already notified for this update")
		s.count("duplicate")
		return nil
	}

	emails, err := s.repo.CourseSubscriberEmails(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(emails) == 0 {
		log.Debug("course has no subscribers")
		s.count("skipped")
		return nil
	}

	subject := fmt.Sprintf("Курс %s обновлен", course.Name)
	body := fmt.Sprintf("Курс %s получил обновления", course.Name)
	if err := s.mailer.Send(emails, subject, body); err != nil {
		s.count("failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.dedup.MarkNotified(ctx, course.ID, course.LastUpdate, markerTTL); err != nil {
		log.Warn("failed to store notification marker", sl.Err(err))
	}
	s.count("sent")
	log.Info("subscribers notified", slog.Int("recipients", len(emails)))
	return nil
}

func (s *Service) count(result string) {
	if s.sent != nil {
		s.sent.WithLabelValues(result).Inc()
	}
}
