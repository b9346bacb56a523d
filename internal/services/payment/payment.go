// Package payment реализует оплату курсов и уроков через платёжного провайдера.
//
// Запись платежа сохраняется до обращения к провайдеру. Затем она проходит этапы
// created → product_ready → price_ready → session_ready, и каждый этап фиксируется в базе.
// При сбое провайдера запись переходит в failed с текстом ошибки; Checkout продолжает
// с последнего успешного этапа.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/paymentprovider"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

const (
	errObjectMissing   = "Invalid pk - object does not exist."
	errCheckoutStarted = "Cannot be changed after checkout has started."
)

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, id int64, patch models.PaymentPatch) (*models.Payment, error)
	SavePaymentGatewayState(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, id int64) error

	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
}

// Gateway — клиент платёжного провайдера.
type Gateway interface {
	CreateProduct(ctx context.Context, name, idempotencyKey string) (string, error)
	CreatePrice(ctx context.Context, productID string, amount int64, idempotencyKey string) (string, error)
	CreateSession(ctx context.Context, priceID, idempotencyKey string) (*paymentprovider.Session, error)
	SessionStatus(ctx context.Context, sessionID string) (string, error)
}

// PaymentService реализует операции над платежами.
type PaymentService struct {
	repo    Repository
	gateway Gateway
	created *prometheus.CounterVec
	log     *slog.Logger
}

// New создает новый экземпляр PaymentService.
func New(repo Repository, gateway Gateway, created *prometheus.CounterVec, log *slog.Logger) *PaymentService {
	return &PaymentService{
		repo:    repo,
		gateway: gateway,
		created: created,
		log:     log,
	}
}

// Create сохраняет платёж от имени p и оформляет для него checkout-сессию.
// При сбое провайдера возвращает сохранённую запись и *models.GatewayError.
func (s *PaymentService) Create(ctx context.Context, p *policy.Principal, req models.DummyPayment) (*models.Payment, error) {
	const op = "payment.Create"
	if err := policy.Authorize(p, policy.KindPayment, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := checkTarget(req.PaidCourseID, req.PaidLessonID); err != nil {
		return nil, err
	}
	name, err := s.productName(ctx, req.PaidCourseID, req.PaidLessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transfer := true
	if req.PayTransfer != nil {
		transfer = *req.PayTransfer
	}
	pay, err := s.repo.CreatePayment(ctx, &models.Payment{
		UserID:       p.UserID,
		PaidCourseID: req.PaidCourseID,
		PaidLessonID: req.PaidLessonID,
		Amount:       req.Amount,
		PayTransfer:  transfer,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment created", slog.Int64("payment_id", pay.ID), slog.Int64("user_id", p.UserID))

	return s.checkout(ctx, pay, name)
}

// Checkout продолжает оформление сессии с последнего успешного этапа.
// Для платежа с готовой сессией ничего не делает.
func (s *PaymentService) Checkout(ctx context.Context, p *policy.Principal, id int64) (*models.Payment, error) {
	const op = "payment.Checkout"
	pay, err := s.load(ctx, p, id, policy.ActionUpdate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if pay.Stage == models.StageSessionReady {
		return pay, nil
	}

	name, err := s.productName(ctx, pay.PaidCourseID, pay.PaidLessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.checkout(ctx, pay, name)
}

// Get возвращает платёж владельцу или администратору.
func (s *PaymentService) Get(ctx context.Context, p *policy.Principal, id int64) (*models.Payment, error) {
	const op = "payment.Get"
	pay, err := s.load(ctx, p, id, policy.ActionRetrieve)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pay, nil
}

// List возвращает платежи p по фильтру; администраторы видят все платежи.
func (s *PaymentService) List(ctx context.Context, p *policy.Principal, f models.PaymentFilter) ([]*models.Payment, error) {
	const op = "payment.List"
	if err := policy.Authorize(p, policy.KindPayment, policy.ActionList, nil); err != nil {
		return nil, err
	}

	f.UserID = nil
	if !policy.SeesEverything(p) {
		f.UserID = &p.UserID
	}
	payments, err := s.repo.ListPayments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// Update меняет пользовательские поля платежа. Данные провайдера не затрагиваются.
// После создания продукта у провайдера сумму и объект оплаты менять нельзя:
// сессия выставляется по уже созданной цене.
func (s *PaymentService) Update(ctx context.Context, p *policy.Principal, id int64, patch models.PaymentPatch) (*models.Payment, error) {
	const op = "payment.Update"
	pay, err := s.load(ctx, p, id, policy.ActionUpdate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := checkLocked(pay, patch); err != nil {
		return nil, err
	}

	course, lesson := pay.PaidCourseID, pay.PaidLessonID
	if patch.PaidCourseID != nil {
		course = patch.PaidCourseID
	}
	if patch.PaidLessonID != nil {
		lesson = patch.PaidLessonID
	}
	if err := checkTarget(course, lesson); err != nil {
		return nil, err
	}
	if _, err := s.productName(ctx, patch.PaidCourseID, patch.PaidLessonID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.repo.UpdatePayment(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет платёж.
func (s *PaymentService) Delete(ctx context.Context, p *policy.Principal, id int64) error {
	const op = "payment.Delete"
	if _, err := s.load(ctx, p, id, policy.ActionDelete); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment deleted", slog.Int64("payment_id", id))
	return nil
}

// Status запрашивает у провайдера текущий статус сессии. Сохранённый статус не меняется.
func (s *PaymentService) Status(ctx context.Context, p *policy.Principal, id int64) (string, error) {
	const op = "payment.Status"
	pay, err := s.load(ctx, p, id, policy.ActionRetrieve)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if pay.SessionID == nil {
		return "", models.NewValidationError("session_id", "Payment has no checkout session.")
	}

	status, err := s.gateway.SessionStatus(ctx, *pay.SessionID)
	if err != nil {
		return "", &models.GatewayError{PaymentID: pay.ID, Stage: pay.Stage, Err: err}
	}
	return status, nil
}

func (s *PaymentService) load(ctx context.Context, p *policy.Principal, id int64, action policy.Action) (*models.Payment, error) {
	if err := policy.Authenticated(p); err != nil {
		return nil, err
	}
	pay, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p, policy.KindPayment, action, &pay.UserID); err != nil {
		return nil, err
	}
	return pay, nil
}

// checkout проводит платёж по оставшимся этапам, сохраняя результат каждого.
func (s *PaymentService) checkout(ctx context.Context, pay *models.Payment, name string) (*models.Payment, error) {
	log := s.log.With(slog.Int64("payment_id", pay.ID))
	pay.Stage = resumeStage(pay)

	for pay.Stage != models.StageSessionReady {
		stage := pay.Stage
		if err := s.advance(ctx, pay, name); err != nil {
			return pay, s.fail(ctx, pay, stage, err)
		}
		if err := s.repo.SavePaymentGatewayState(ctx, pay); err != nil {
			return nil, fmt.Errorf("payment.checkout: %w", err)
		}
		log.Debug("payment stage completed", slog.String("stage", string(pay.Stage)))
	}

	s.count(models.StageSessionReady)
	log.Info("checkout session ready", slog.String("session_id", *pay.SessionID))
	return pay, nil
}

func (s *PaymentService) advance(ctx context.Context, pay *models.Payment, name string) error {
	switch pay.Stage {
	case models.StageCreated:
		id, err := s.gateway.CreateProduct(ctx, name, paymentprovider.IdempotencyKey(pay.ID, "product", pay.Attempt))
		if err != nil {
			return err
		}
		pay.ProductID = &id
		pay.Stage = models.StageProductReady
	case models.StageProductReady:
		id, err := s.gateway.CreatePrice(ctx, *pay.ProductID, int64(pay.Amount), paymentprovider.IdempotencyKey(pay.ID, "price", pay.Attempt))
		if err != nil {
			return err
		}
		pay.PriceID = &id
		pay.Stage = models.StagePriceReady
	case models.StagePriceReady:
		sess, err := s.gateway.CreateSession(ctx, *pay.PriceID, paymentprovider.IdempotencyKey(pay.ID, "session", pay.Attempt))
		if err != nil {
			return err
		}
		status := sess.Status
		if fresh, err := s.gateway.SessionStatus(ctx, sess.ID); err != nil {
			s.log.Warn("failed to query initial session status", slog.Int64("payment_id", pay.ID), sl.Err(err))
		} else {
			status = fresh
		}
		pay.SessionID = &sess.ID
		pay.PaymentLink = &sess.URL
		pay.PaymentStatus = &status
		pay.Stage = models.StageSessionReady
	default:
		return fmt.Errorf("unexpected payment stage %q", pay.Stage)
	}
	pay.GatewayError = nil
	return nil
}

func (s *PaymentService) fail(ctx context.Context, pay *models.Payment, stage models.PaymentStage, cause error) error {
	msg := cause.Error()
	pay.GatewayError = &msg
	pay.Stage = models.StageFailed
	pay.Attempt++
	if err := s.repo.SavePaymentGatewayState(ctx, pay); err != nil {
		s.log.Error("failed to save payment failure", slog.Int64("payment_id", pay.ID), sl.Err(err))
	}
	s.count(models.StageFailed)
	s.log.Error("payment gateway failed",
		slog.Int64("payment_id", pay.ID),
		slog.String("stage", string(stage)),
		sl.Err(cause),
	)
	return &models.GatewayError{PaymentID: pay.ID, Stage: stage, Err: cause}
}

func (s *PaymentService) count(stage models.PaymentStage) {
	if s.created != nil {
		s.created.WithLabelValues(string(stage)).Inc()
	}
}

// productName возвращает название оплачиваемого объекта и проверяет, что он существует.
func (s *PaymentService) productName(ctx context.Context, courseID, lessonID *int64) (string, error) {
	switch {
	case courseID != nil:
		c, err := s.repo.GetCourse(ctx, *courseID)
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewValidationError("paid_course", errObjectMissing)
		}
		if err != nil {
			return "", err
		}
		return c.Name, nil
	case lessonID != nil:
		l, err := s.repo.GetLesson(ctx, *lessonID)
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewValidationError("paid_lesson", errObjectMissing)
		}
		if err != nil {
			return "", err
		}
		return l.Name, nil
	default:
		return "Оплата материалов", nil
	}
}

// resumeStage определяет первый незавершённый этап по сохранённым данным провайдера.
func resumeStage(p *models.Payment) models.PaymentStage {
	switch {
	case p.SessionID != nil:
		return models.StageSessionReady
	case p.PriceID != nil:
		return models.StagePriceReady
	case p.ProductID != nil:
		return models.StageProductReady
	default:
		return models.StageCreated
	}
}

// checkLocked запрещает менять сумму и объект оплаты, если у провайдера уже есть продукт.
func checkLocked(pay *models.Payment, patch models.PaymentPatch) error {
	if pay.ProductID == nil {
		return nil
	}
	var verr models.ValidationError
	if patch.Amount != nil && *patch.Amount != pay.Amount {
		verr.Add("pay_sum", errCheckoutStarted)
	}
	if patch.PaidCourseID != nil && !sameID(pay.PaidCourseID, *patch.PaidCourseID) {
		verr.Add("paid_course", errCheckoutStarted)
	}
	if patch.PaidLessonID != nil && !sameID(pay.PaidLessonID, *patch.PaidLessonID) {
		verr.Add("paid_lesson", errCheckoutStarted)
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}

func sameID(current *int64, next int64) bool {
	return current != nil && *current == next
}

func checkTarget(courseID, lessonID *int64) error {
	if courseID != nil && lessonID != nil {
		return models.NewValidationError("non_field_errors", "Payment must reference either a course or a lesson, not both.")
	}
	return nil
}
