// Package paymentcreate реализует HTTP-обработчик создания платежа.
//
// Платёж сохраняется сразу, после чего у платёжного провайдера по шагам создаются
// продукт, цена и checkout-сессия. Если провайдер недоступен, клиент получает 502
// с идентификатором платежа, по которому оформление можно продолжить.
package paymentcreate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/materials-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/materials-api/internal/http/request"
	"github.com/magabrotheeeer/materials-api/internal/http/response"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// Service описывает интерфейс бизнес-логики создания платежа.
type Service interface {
	Create(ctx context.Context, p *policy.Principal, req models.DummyPayment) (*models.Payment, error)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validation.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платеж
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.DummyPayment true "Данные платежа"
// @Success 201 {object} models.Payment
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /payments/create/ [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentcreate.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPayment
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	pay, err := h.service.Create(r.Context(), middlewarectx.PrincipalFrom(r.Context()), req)
	if err != nil {
		log.Error("failed to create payment", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("payment created", slog.Int64("payment_id", pay.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pay)
}
