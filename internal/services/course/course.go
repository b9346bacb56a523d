// Package course реализует бизнес-логику курсов и уроков: проверку прав,
// назначение владельца, представления с числом уроков и признаком подписки,
// постановку задачи уведомления подписчиков после обновления.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/cache"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
	"github.com/magabrotheeeer/materials-api/internal/rabbitmq"
)

const courseCacheTTL = time.Hour

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreateCourse(ctx context.Context, c *models.Course) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, patch models.CoursePatch, now time.Time) (*models.Course, time.Time, error)
	DeleteCourse(ctx context.Context, id int64) error
	CourseStats(ctx context.Context, userID int64, courseIDs []int64) (map[int64]models.CourseStat, error)

	CreateLesson(ctx context.Context, l *models.Lesson) (*models.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	ListLessons(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Lesson, error)
	ListLessonsForCourses(ctx context.Context, courseIDs []int64) ([]*models.Lesson, error)
	UpdateLesson(ctx context.Context, id int64, patch models.LessonPatch, now time.Time) (*models.Lesson, time.Time, error)
	DeleteLesson(ctx context.Context, id int64) error
}

// Cache описывает методы для кеширования курсов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Enqueuer ставит задачу в очередь уведомлений.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind rabbitmq.TaskKind, payload any) error
}

// Service реализует операции над курсами и уроками.
type Service struct {
	repo  Repository
	cache Cache
	queue Enqueuer
	log   *slog.Logger
	now   func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, queue Enqueuer, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		queue: queue,
		log:   log,
		now:   time.Now,
	}
}

// CreateCourse сохраняет курс, владельцем которого становится p.
func (s *Service) CreateCourse(ctx context.Context, p *policy.Principal, req models.DummyCourse) (*models.CourseView, error) {
	const op = "course.CreateCourse"
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionCreate, nil); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateCourse(ctx, &models.Course{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     &p.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("course created", slog.Int64("course_id", created.ID), slog.Int64("owner_id", p.UserID))

	return &models.CourseView{Course: *created, Lessons: []*models.Lesson{}}, nil
}

// GetCourse возвращает курс с уроками, числом уроков и признаком подписки p.
func (s *Service) GetCourse(ctx context.Context, p *policy.Principal, id int64) (*models.CourseView, error) {
	const op = "course.GetCourse"
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}

	c, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionRetrieve, c.OwnerID); err != nil {
		return nil, err
	}

	views, err := s.views(ctx, p, []*models.Course{c})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return views[0], nil
}

// ListCourses возвращает курсы p, а администраторам и суперпользователям — все курсы.
func (s *Service) ListCourses(ctx context.Context, p *policy.Principal, page models.Page) ([]*models.CourseView, error) {
	const op = "course.ListCourses"
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionList, nil); err != nil {
		return nil, err
	}

	courses, err := s.repo.ListCourses(ctx, ownerFilter(p), page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	views, err := s.views(ctx, p, courses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return views, nil
}

// UpdateCourse применяет патч, обновляет last_update и ставит задачу уведомления
// с прежним значением last_update.
func (s *Service) UpdateCourse(ctx context.Context, p *policy.Principal, id int64, patch models.CoursePatch) (*models.CourseView, error) {
	const op = "course.UpdateCourse"
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionUpdate, c.OwnerID); err != nil {
		return nil, err
	}

	updated, prior, err := s.repo.UpdateCourse(ctx, id, patch, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.notify(ctx, id, prior)

	views, err := s.views(ctx, p, []*models.Course{updated})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return views[0], nil
}

// DeleteCourse удаляет курс вместе с его уроками.
func (s *Service) DeleteCourse(ctx context.Context, p *policy.Principal, id int64) error {
	const op = "course.DeleteCourse"
	if err := policy.Authenticated(p); err != nil {
		return err
	}

	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionDelete, c.OwnerID); err != nil {
		return err
	}
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("course deleted", slog.Int64("course_id", id))
	return nil
}

func (s *Service) loadCourse(ctx context.Context, id int64) (*models.Course, error) {
	key := cache.CourseKey(id)
	var c models.Course
	found, err := s.cache.Get(ctx, key, &c)
	if err != nil {
		s.log.Warn("course cache read failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &c, nil
	}

	fresh, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, fresh, courseCacheTTL); err != nil {
		s.log.Warn("failed to cache course", slog.String("key", key), sl.Err(err))
	}
	return fresh, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	key := cache.CourseKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate course cache", slog.String("key", key), sl.Err(err))
	}
}

// notify ставит задачу уведомления. Сбой постановки не отменяет уже сохранённое изменение.
func (s *Service) notify(ctx context.Context, courseID int64, prior time.Time) {
	task := models.CourseUpdatedTask{CourseID: courseID, PriorUpdate: prior}
	if err := s.queue.Enqueue(ctx, rabbitmq.TaskCourseUpdated, task); err != nil {
		s.log.Error("failed to enqueue course update notification",
			slog.Int64("course_id", courseID), sl.Err(err))
		return
	}
	s.log.Debug("course update notification enqueued", slog.Int64("course_id", courseID))
}

func (s *Service) views(ctx context.Context, p *policy.Principal, courses []*models.Course) ([]*models.CourseView, error) {
	views := make([]*models.CourseView, 0, len(courses))
	if len(courses) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	stats, err := s.repo.CourseStats(ctx, p.UserID, ids)
	if err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessonsForCourses(ctx, ids)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[int64][]*models.Lesson, len(courses))
	for _, l := range lessons {
		byCourse[l.CourseID] = append(byCourse[l.CourseID], l)
	}

	for _, c := range courses {
		v := &models.CourseView{
			Course:      *c,
			LessonCount: stats[c.ID].LessonCount,
			Subscribed:  stats[c.ID].Subscribed,
			Lessons:     byCourse[c.ID],
		}
		if v.Lessons == nil {
			v.Lessons = []*models.Lesson{}
		}
		views = append(views, v)
	}
	return views, nil
}

func ownerFilter(p *policy.Principal) *int64 {
	if policy.SeesEverything(p) {
		return nil
	}
	return &p.UserID
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
