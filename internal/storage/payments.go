package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

const paymentColumns = `id, user_id, pay_date, paid_course_id, paid_lesson_id, amount, pay_transfer,
	session_id, payment_link, payment_status, gateway_stage, product_id, price_id, gateway_error, gateway_attempts`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.PayDate, &p.PaidCourseID, &p.PaidLessonID, &p.Amount, &p.PayTransfer,
		&p.SessionID, &p.PaymentLink, &p.PaymentStatus, &p.Stage, &p.ProductID, &p.PriceID, &p.GatewayError, &p.Attempt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment сохраняет платёж на этапе created.
func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const op = "storage.CreatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO payments (user_id, paid_course_id, paid_lesson_id, amount, pay_transfer, gateway_stage)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + paymentColumns
	created, err := scanPayment(s.DB.QueryRowContext(ctx, query,
		p.UserID, p.PaidCourseID, p.PaidLessonID, p.Amount, p.PayTransfer, models.StageCreated))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// ListPayments возвращает платежи по фильтру. Порядок по дате оплаты, при равенстве по ID.
func (s *Storage) ListPayments(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	order := "pay_date ASC, id ASC"
	if f.OrderDesc {
		order = "pay_date DESC, id DESC"
	}
	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE ($1::bigint IS NULL OR user_id = $1)
			    AND ($2::bigint IS NULL OR paid_course_id = $2)
			    AND ($3::bigint IS NULL OR paid_lesson_id = $3)
			    AND ($4::boolean IS NULL OR pay_transfer = $4)
			  ORDER BY ` + order + `
			  LIMIT $5 OFFSET $6`
	rows, err := s.DB.QueryContext(ctx, query, f.UserID, f.PaidCourseID, f.PaidLessonID, f.PayTransfer, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdatePayment применяет частичное обновление к пользовательским полям платежа.
func (s *Storage) UpdatePayment(ctx context.Context, id int64, patch models.PaymentPatch) (*models.Payment, error) {
	const op = "storage.UpdatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE payments SET
			      paid_course_id = COALESCE($2, paid_course_id),
			      paid_lesson_id = COALESCE($3, paid_lesson_id),
			      amount = COALESCE($4, amount),
			      pay_transfer = COALESCE($5, pay_transfer)
			  WHERE id = $1
			  RETURNING ` + paymentColumns
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id, patch.PaidCourseID, patch.PaidLessonID, patch.Amount, patch.PayTransfer))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// SavePaymentGatewayState сохраняет этап оформления и данные провайдера.
func (s *Storage) SavePaymentGatewayState(ctx context.Context, p *models.Payment) error {
	const op = "storage.SavePaymentGatewayState"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE payments SET
			gateway_stage = $2,
			product_id = $3,
			price_id = $4,
			session_id = $5,
			payment_link = $6,
			payment_status = $7,
			gateway_error = $8,
			gateway_attempts = $9
		WHERE id = $1`,
		p.ID, p.Stage, p.ProductID, p.PriceID, p.SessionID, p.PaymentLink, p.PaymentStatus, p.GatewayError, p.Attempt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeletePayment удаляет платёж.
func (s *Storage) DeletePayment(ctx context.Context, id int64) error {
	const op = "storage.DeletePayment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = expectAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
