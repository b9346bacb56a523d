// Package userremove реализует HTTP-обработчик удаления собственного аккаунта.
package userremove

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

// Service описывает интерфейс бизнес-логики удаления аккаунта.
type Service interface {
	Delete(ctx context.Context, p *policy.Principal, id int64) error
}

// Handler обрабатывает запросы на удаление аккаунта.
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
// @Summary Удалить аккаунт
// @Tags Users
// @Param id path int true "ID пользователя"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Router /user/delete/{id}/ [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.userremove.ServeHTTP"
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
		log.Error("failed to delete user", slog.Int64("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user deleted", slog.Int64("user_id", id))
	render.NoContent(w, r)
}
