// Package lessonremove реализует HTTP-обработчик удаления урока. Курс урока не затрагивается.
package lessonremove

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

// Service описывает интерфейс бизнес-логики удаления урока.
type Service interface {
	DeleteLesson(ctx context.Context, p *policy.Principal, id int64) error
}

// Handler обрабатывает запросы на удаление урока.
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
// @Summary Удалить урок
// @Tags Lessons
// @Param id path int true "ID урока"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /lesson/delete/{id}/ [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lessonremove.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	if err := h.service.DeleteLesson(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id); err != nil {
		log.Error("failed to delete lesson", slog.Int64("lesson_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("lesson deleted", slog.Int64("lesson_id", id))
	render.NoContent(w, r)
}
