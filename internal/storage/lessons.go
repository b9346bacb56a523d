package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

const lessonColumns = `id, name, description, preview, video, course_id, owner_id`

func scanLesson(row rowScanner) (*models.Lesson, error) {
	var l models.Lesson
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.Preview, &l.Video, &l.CourseID, &l.OwnerID); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLessons(rows *sql.Rows) ([]*models.Lesson, error) {
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// CreateLesson сохраняет урок. Несуществующий курс возвращает models.ErrNotFound.
func (s *Storage) CreateLesson(ctx context.Context, l *models.Lesson) (*models.Lesson, error) {
	const op = "storage.CreateLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO lessons (name, description, video, course_id, owner_id)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + lessonColumns
	created, err := scanLesson(s.DB.QueryRowContext(ctx, query, l.Name, l.Description, l.Video, l.CourseID, l.OwnerID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// GetLesson возвращает урок по ID.
func (s *Storage) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	const op = "storage.GetLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	l, err := scanLesson(s.DB.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return l, nil
}

// ListLessons возвращает страницу уроков. ownerID == nil означает все уроки.
func (s *Storage) ListLessons(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Lesson, error) {
	const op = "storage.ListLessons"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+lessonColumns+` FROM lessons
		WHERE ($1::bigint IS NULL OR owner_id = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3`, ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := collectLessons(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListLessonsForCourses возвращает уроки перечисленных курсов, упорядоченные по ID.
func (s *Storage) ListLessonsForCourses(ctx context.Context, courseIDs []int64) ([]*models.Lesson, error) {
	const op = "storage.ListLessonsForCourses"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if len(courseIDs) == 0 {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+lessonColumns+` FROM lessons
		WHERE course_id = ANY($1) ORDER BY id`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := collectLessons(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateLesson применяет патч к уроку и выставляет last_update родительского курса в now.
// Возвращает обновлённый урок и прежнее значение last_update курса.
func (s *Storage) UpdateLesson(ctx context.Context, id int64, patch models.LessonPatch, now time.Time) (*models.Lesson, time.Time, error) {
	const op = "storage.UpdateLesson"
	if err := checkCtx(ctx, op); err != nil {
		return nil, time.Time{}, err
	}

	var (
		updated *models.Lesson
		prior   time.Time
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = scanLesson(tx.QueryRowContext(ctx, `UPDATE lessons SET
				name = COALESCE($2, name),
				description = COALESCE($3, description),
				video = COALESCE($4, video)
			WHERE id = $1
			RETURNING `+lessonColumns, id, patch.Name, patch.Description, patch.Video))
		if err != nil {
			return err
		}
		if err = tx.QueryRowContext(ctx, `SELECT last_update FROM courses WHERE id = $1 FOR UPDATE`,
			updated.CourseID).Scan(&prior); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE courses SET last_update = $2 WHERE id = $1`, updated.CourseID, now)
		return err
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return updated, prior, nil
}

// SetLessonPreview сохраняет ключ объекта с превью урока.
func (s *Storage) SetLessonPreview(ctx context.Context, id int64, key string) error {
	const op = "storage.SetLessonPreview"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE lessons SET preview = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteLesson удаляет только указанный урок.
func (s *Storage) DeleteLesson(ctx context.Context, id int64) error {
	const op = "storage.DeleteLesson"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
