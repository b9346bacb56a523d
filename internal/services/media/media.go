// Package media загружает изображения превью курсов и уроков и аватары пользователей.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/magabrotheeeer/materials-api/internal/cache"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/objectstore"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// MaxImageSize — предельный размер загружаемого изображения.
const MaxImageSize = 5 << 20

const sniffLen = 512

const (
	prefixCourse = "courses/previews"
	prefixLesson = "lessons/previews"
	prefixAvatar = "users/avatars"
)

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetCoursePreview(ctx context.Context, id int64, key string) error
	SetLessonPreview(ctx context.Context, id int64, key string) error
	SetUserAvatar(ctx context.Context, id int64, key string) error
}

// Store — хранилище объектов.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Invalidator сбрасывает закешированные записи.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Upload — загружаемый файл.
type Upload struct {
	Body     io.Reader
	Size     int64
	Filename string
}

// MediaService сохраняет изображения в хранилище объектов и ключи в записях.
type MediaService struct {
	repo  Repository
	store Store
	cache Invalidator
	log   *slog.Logger
}

// New создает новый экземпляр MediaService. cache — кеш курсов, который читает course.Service.
func New(repo Repository, store Store, cache Invalidator, log *slog.Logger) *MediaService {
	return &MediaService{
		repo:  repo,
		store: store,
		cache: cache,
		log:   log,
	}
}

// SetCoursePreview загружает превью курса. Право — как на изменение курса.
func (s *MediaService) SetCoursePreview(ctx context.Context, p *policy.Principal, id int64, up Upload) (string, error) {
	const op = "media.SetCoursePreview"
	if err := policy.Authenticated(p); err != nil {
		return "", err
	}
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindCourse, policy.ActionUpdate, c.OwnerID); err != nil {
		return "", err
	}
	key, err := s.save(ctx, op, prefixCourse, up, func(key string) error {
		return s.repo.SetCoursePreview(ctx, id, key)
	})
	if err != nil {
		return "", err
	}
	if err := s.cache.Invalidate(ctx, cache.CourseKey(id)); err != nil {
		s.log.Warn("failed to invalidate course cache", slog.Int64("course_id", id), sl.Err(err))
	}
	return key, nil
}

// SetLessonPreview загружает превью урока. Право — как на изменение урока.
func (s *MediaService) SetLessonPreview(ctx context.Context, p *policy.Principal, id int64, up Upload) (string, error) {
	const op = "media.SetLessonPreview"
	if err := policy.Authenticated(p); err != nil {
		return "", err
	}
	l, err := s.repo.GetLesson(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindLesson, policy.ActionUpdate, l.OwnerID); err != nil {
		return "", err
	}
	return s.save(ctx, op, prefixLesson, up, func(key string) error {
		return s.repo.SetLessonPreview(ctx, id, key)
	})
}

// SetAvatar загружает аватар. Менять можно только собственный.
func (s *MediaService) SetAvatar(ctx context.Context, p *policy.Principal, id int64, up Upload) (string, error) {
	const op = "media.SetAvatar"
	if err := policy.Authenticated(p); err != nil {
		return "", err
	}
	if _, err := s.repo.GetUserByID(ctx, id); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := policy.Authorize(p, policy.KindAccount, policy.ActionUpdate, &id); err != nil {
		return "", err
	}
	return s.save(ctx, op, prefixAvatar, up, func(key string) error {
		return s.repo.SetUserAvatar(ctx, id, key)
	})
}

func (s *MediaService) save(ctx context.Context, op, prefix string, up Upload, attach func(key string) error) (string, error) {
	if up.Size <= 0 {
		return "", models.NewValidationError("file", "The submitted file is empty.")
	}
	if up.Size > MaxImageSize {
		return "", models.NewValidationError("file", "Image is too large, max 5 MiB.")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return "", models.NewValidationError("file", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	key := objectstore.NewKey(prefix, extension(up.Filename, contentType))
	body := io.MultiReader(bytes.NewReader(head), up.Body)
	if err := s.store.Put(ctx, key, body, up.Size, contentType); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := attach(key); err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.log.Warn("failed to remove orphaned object", slog.String("key", key), sl.Err(rmErr))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("image stored", slog.String("key", key), slog.String("content_type", contentType))
	return key, nil
}

func extension(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
