// Package paymentstatus реализует HTTP-обработчик запроса статуса checkout-сессии у провайдера.
package paymentstatus

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
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// StatusResponse — текущий статус оплаты.
type StatusResponse struct {
	PaymentStatus string `json:"payment_status" example:"paid"`
}

// Service описывает интерфейс бизнес-логики получения статуса.
type Service interface {
	Status(ctx context.Context, p *policy.Principal, id int64) (string, error)
}

// Handler обрабатывает запросы статуса платежа.
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
// @Summary Статус оплаты
// @Tags Payments
// @Produce json
// @Param id path int true "ID платежа"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} response.ValidationErrors
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /payments/{id}/status/ [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentstatus.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	status, err := h.service.Status(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id)
	if err != nil {
		log.Error("failed to get payment status", slog.Int64("payment_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, StatusResponse{PaymentStatus: status})
}
