package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.avatar, u.phone, u.city,
	u.is_active, u.is_superuser, u.is_staff, u.last_login, u.date_joined,
	COALESCE((SELECT string_agg(g.name, ',' ORDER BY g.name)
	          FROM user_groups ug JOIN groups g ON g.id = ug.group_id
	          WHERE ug.user_id = u.id), '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var groups string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Avatar, &u.Phone, &u.City,
		&u.IsActive, &u.IsSuperuser, &u.IsStaff, &u.LastLogin, &u.DateJoined, &groups); err != nil {
		return nil, err
	}
	if groups != "" {
		u.Groups = strings.Split(groups, ",")
	}
	return &u, nil
}

// CreateUser сохраняет пользователя и возвращает его ID.
// Занятый email возвращает models.ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO users (email, password_hash, phone, city, is_active, is_superuser, is_staff)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, date_joined`
	err := s.DB.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Phone, u.City, u.IsActive, u.IsSuperuser, u.IsStaff,
	).Scan(&u.ID, &u.DateJoined)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return u.ID, nil
}

// GetUserByID возвращает пользователя вместе с именами его групп.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// GetUserByEmail ищет пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей, упорядоченных по ID.
func (s *Storage) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateUser применяет частичное обновление профиля. passwordHash, если задан, заменяет хеш пароля.
func (s *Storage) UpdateUser(ctx context.Context, id int64, patch models.UserPatch, passwordHash *string) error {
	const op = "storage.UpdateUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE users SET
			      email = COALESCE($2, email),
			      password_hash = COALESCE($3, password_hash),
			      phone = COALESCE($4, phone),
			      city = COALESCE($5, city)
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, patch.Email, passwordHash, patch.Phone, patch.City)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetUserAvatar сохраняет ключ объекта с аватаром пользователя.
func (s *Storage) SetUserAvatar(ctx context.Context, id int64, key string) error {
	const op = "storage.SetUserAvatar"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET avatar = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя. Курсы и уроки остаются без владельца,
// подписки и платежи удаляются каскадно.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateLastLogin фиксирует время последнего входа.
func (s *Storage) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.UpdateLastLogin"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AddUserToGroup добавляет пользователя в группу, создавая группу при необходимости.
func (s *Storage) AddUserToGroup(ctx context.Context, userID int64, group string) error {
	const op = "storage.AddUserToGroup"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var groupID int64
		err := tx.QueryRowContext(ctx, `INSERT INTO groups (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, group).Scan(&groupID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, groupID)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// ListActiveUsersWithoutLogin возвращает ID активных пользователей, ни разу не входивших в систему.
func (s *Storage) ListActiveUsersWithoutLogin(ctx context.Context) ([]int64, error) {
	const op = "storage.ListActiveUsersWithoutLogin"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	ids, err := s.queryIDs(ctx, `SELECT id FROM users WHERE is_active AND last_login IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// DeactivateUsersLoggedInBefore снимает флаг активности с пользователей,
// последний вход которых был раньше cutoff, и возвращает их ID.
func (s *Storage) DeactivateUsersLoggedInBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const op = "storage.DeactivateUsersLoggedInBefore"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	ids, err := s.queryIDs(ctx, `UPDATE users SET is_active = FALSE
		WHERE is_active AND last_login IS NOT NULL AND last_login < $1
		RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (s *Storage) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
