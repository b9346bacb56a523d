// Package paymentcheckout реализует HTTP-обработчик повторного оформления checkout-сессии.
//
// Оформление продолжается с этапа, на котором остановилась предыдущая попытка.
// Для платежа с готовой сессией запрос ничего не меняет.
package paymentcheckout

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

// Service описывает интерфейс бизнес-логики оформления платежа.
type Service interface {
	Checkout(ctx context.Context, p *policy.Principal, id int64) (*models.Payment, error)
}

// Handler обрабатывает запросы на повторное оформление.
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
// @Summary Продолжить оформление платежа
// @Tags Payments
// @Produce json
// @Param id path int true "ID платежа"
// @Success 200 {object} models.Payment
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /payments/{id}/checkout/ [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentcheckout.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	pay, err := h.service.Checkout(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id)
	if err != nil {
		log.Error("failed to checkout payment", slog.Int64("payment_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("payment checkout ready", slog.Int64("payment_id", id), slog.String("stage", string(pay.Stage)))
	render.JSON(w, r, pay)
}
