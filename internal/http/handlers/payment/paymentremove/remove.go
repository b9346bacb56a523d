// Package paymentremove реализует HTTP-обработчик удаления платежа.
package paymentremove

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

// Service описывает интерфейс бизнес-логики удаления платежа.
type Service interface {
	Delete(ctx context.Context, p *policy.Principal, id int64) error
}

// Handler обрабатывает запросы на удаление платежа.
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
// @Summary Удалить платеж
// @Tags Payments
// @Param id path int true "ID платежа"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/{id}/ [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentremove.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id); err != nil {
		log.Error("failed to delete payment", slog.Int64("payment_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("payment deleted", slog.Int64("payment_id", id))
	render.NoContent(w, r)
}
