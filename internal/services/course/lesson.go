package course

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

const errCourseMissing = "Invalid pk - object does not exist."

// CreateLesson сохраняет урок в существующем курсе; владельцем становится p.
func (s *Service) CreateLesson(ctx context.Context, p *policy.Principal, req models.DummyLesson) (*models.Lesson, error) {
	const op = "course.CreateLesson"
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionCreate, nil); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetCourse(ctx, req.CourseID); err != nil {
		if isNotFound(err) {
			return nil, models.NewValidationError("course", errCourseMissing)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.repo.CreateLesson(ctx, &models.Lesson{
		Name:        req.Name,
		Description: req.Description,
		Video:       req.Video,
		CourseID:    req.CourseID,
		OwnerID:     &p.UserID,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewValidationError("course", errCourseMissing)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("lesson created", slog.Int64("lesson_id", created.ID), slog.Int64("course_id", created.CourseID))
	return created, nil
}

// GetLesson возвращает урок, если p — его владелец или администратор.
func (s *Service) GetLesson(ctx context.Context, p *policy.Principal, id int64) (*models.Lesson, error) {
	const op = "course.GetLesson"
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}

	l, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionRetrieve, l.OwnerID); err != nil {
		return nil, err
	}
	return l, nil
}

// ListLessons возвращает уроки p, а администраторам и суперпользователям — все уроки.
func (s *Service) ListLessons(ctx context.Context, p *policy.Principal, page models.Page) ([]*models.Lesson, error) {
	const op = "course.ListLessons"
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionList, nil); err != nil {
		return nil, err
	}

	lessons, err := s.repo.ListLessons(ctx, ownerFilter(p), page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}
	return lessons, nil
}

// UpdateLesson применяет патч к уроку. У урока нет своей отметки времени обновления,
// поэтому обновляется last_update родительского курса и уведомление ставится по курсу.
func (s *Service) UpdateLesson(ctx context.Context, p *policy.Principal, id int64, patch models.LessonPatch) (*models.Lesson, error) {
	const op = "course.UpdateLesson"
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}

	l, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionUpdate, l.OwnerID); err != nil {
		return nil, err
	}

	updated, prior, err := s.repo.UpdateLesson(ctx, id, patch, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, updated.CourseID)
	s.notify(ctx, updated.CourseID, prior)
	return updated, nil
}

// DeleteLesson удаляет только указанный урок; курс остаётся.
func (s *Service) DeleteLesson(ctx context.Context, p *policy.Principal, id int64) error {
	const op = "course.DeleteLesson"
	if err := policy.Authenticated(p); err != nil {
		return err
	}

	l, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionDelete, l.OwnerID); err != nil {
		return err
	}
	if err := s.repo.DeleteLesson(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("lesson deleted", slog.Int64("lesson_id", id))
	return nil
}
