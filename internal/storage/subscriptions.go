package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

// ToggleSubscription удаляет подписку пользователя на курс, если она есть, иначе создаёт её.
// Уникальный индекс (user_id, course_id) не даёт параллельным запросам создать две записи.
func (s *Storage) ToggleSubscription(ctx context.Context, userID, courseID int64) (models.ToggleResult, error) {
	const op = "storage.ToggleSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var result models.ToggleResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM subscriptions WHERE user_id = $1 AND course_id = $2`, userID, courseID)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			result = models.SubscriptionRemoved
			return nil
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO subscriptions (user_id, course_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, course_id) DO NOTHING`, userID, courseID); err != nil {
			return err
		}
		result = models.SubscriptionAdded
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return result, nil
}
