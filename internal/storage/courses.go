package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

const courseColumns = `id, name, preview, description, owner_id, last_update, created_at`

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.Name, &c.Preview, &c.Description, &c.OwnerID, &c.LastUpdate, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse сохраняет курс и возвращает его с заполненными ID и временными метками.
func (s *Storage) CreateCourse(ctx context.Context, c *models.Course) (*models.Course, error) {
	const op = "storage.CreateCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO courses (name, description, owner_id)
			  VALUES ($1, $2, $3)
			  RETURNING ` + courseColumns
	created, err := scanCourse(s.DB.QueryRowContext(ctx, query, c.Name, c.Description, c.OwnerID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// GetCourse возвращает курс по ID.
func (s *Storage) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	const op = "storage.GetCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	c, err := scanCourse(s.DB.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return c, nil
}

// ListCourses возвращает страницу курсов. ownerID == nil означает все курсы.
func (s *Storage) ListCourses(ctx context.Context, ownerID *int64, page models.Page) ([]*models.Course, error) {
	const op = "storage.ListCourses"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + courseColumns + ` FROM courses
			  WHERE ($1::bigint IS NULL OR owner_id = $1)
			  ORDER BY id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateCourse применяет патч и выставляет last_update = now в одной транзакции.
// Возвращает обновлённый курс и значение last_update до изменения.
func (s *Storage) UpdateCourse(ctx context.Context, id int64, patch models.CoursePatch, now time.Time) (*models.Course, time.Time, error) {
	const op = "storage.UpdateCourse"
	if err := checkCtx(ctx, op); err != nil {
		return nil, time.Time{}, err
	}

	var (
		updated *models.Course
		prior   time.Time
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT last_update FROM courses WHERE id = $1 FOR UPDATE`, id).Scan(&prior); err != nil {
			return err
		}
		var err error
		updated, err = scanCourse(tx.QueryRowContext(ctx, `UPDATE courses SET
				name = COALESCE($2, name),
				description = COALESCE($3, description),
				last_update = $4
			WHERE id = $1
			RETURNING `+courseColumns, id, patch.Name, patch.Description, now))
		return err
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return updated, prior, nil
}

// SetCoursePreview сохраняет ключ объекта с превью курса.
func (s *Storage) SetCoursePreview(ctx context.Context, id int64, key string) error {
	const op = "storage.SetCoursePreview"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE courses SET preview = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteCourse удаляет курс вместе с уроками и подписками.
func (s *Storage) DeleteCourse(ctx context.Context, id int64) error {
	const op = "storage.DeleteCourse"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CourseStats возвращает число уроков и признак подписки userID для каждого из курсов.
func (s *Storage) CourseStats(ctx context.Context, userID int64, courseIDs []int64) (map[int64]models.CourseStat, error) {
	const op = "storage.CourseStats"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	result := make(map[int64]models.CourseStat, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	query := `SELECT c.id,
			      (SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id),
			      EXISTS (SELECT 1 FROM subscriptions sub WHERE sub.course_id = c.id AND sub.user_id = $1)
			  FROM courses c
			  WHERE c.id = ANY($2)`
	rows, err := s.DB.QueryContext(ctx, query, userID, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			id   int64
			stat models.CourseStat
		)
		if err := rows.Scan(&id, &stat.LessonCount, &stat.Subscribed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[id] = stat
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CourseSubscriberEmails возвращает email всех подписчиков курса.
func (s *Storage) CourseSubscriberEmails(ctx context.Context, courseID int64) ([]string, error) {
	const op = "storage.CourseSubscriberEmails"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT u.email
		FROM subscriptions sub JOIN users u ON u.id = sub.user_id
		WHERE sub.course_id = $1
		ORDER BY u.id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		emails = append(emails, email)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return emails, nil
}
