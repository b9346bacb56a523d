// Package paymentlist реализует HTTP-обработчик списка платежей с фильтрацией.
//
// Поддерживаются фильтры paid_course, paid_lesson, pay_transfer и сортировка
// ordering=pay_date или ordering=-pay_date. Обычный пользователь видит только свои платежи.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/materials-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/materials-api/internal/http/request"
	"github.com/magabrotheeeer/materials-api/internal/http/response"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// Service описывает интерфейс бизнес-логики списка платежей.
type Service interface {
	List(ctx context.Context, p *policy.Principal, f models.PaymentFilter) ([]*models.Payment, error)
}

// Handler обрабатывает запросы на получение списка платежей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Tags Payments
// @Produce json
// @Param paid_course query int false "Оплаченный курс"
// @Param paid_lesson query int false "Оплаченный урок"
// @Param pay_transfer query bool false "Оплата переводом"
// @Param ordering query string false "pay_date или -pay_date"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Payment
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Router /payments/ [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentlist.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	f, err := parseFilter(r)
	if err != nil {
		log.Info("invalid filter", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.List(r.Context(), middlewarectx.PrincipalFrom(r.Context()), f)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

func parseFilter(r *http.Request) (models.PaymentFilter, error) {
	var (
		f   models.PaymentFilter
		err error
	)
	if f.Page, err = request.Page(r); err != nil {
		return f, err
	}
	if f.PaidCourseID, err = request.OptionalInt64(r, "paid_course"); err != nil {
		return f, err
	}
	if f.PaidLessonID, err = request.OptionalInt64(r, "paid_lesson"); err != nil {
		return f, err
	}
	if f.PayTransfer, err = request.OptionalBool(r, "pay_transfer"); err != nil {
		return f, err
	}
	switch r.URL.Query().Get("ordering") {
	case "", "pay_date":
	case "-pay_date":
		f.OrderDesc = true
	default:
		return f, models.NewValidationError("ordering", "Must be pay_date or -pay_date.")
	}
	return f, nil
}
