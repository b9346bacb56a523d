// Package courseremove реализует HTTP-обработчик удаления курса вместе с его уроками.
package courseremove

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

// Service описывает интерфейс бизнес-логики удаления курса.
type Service interface {
	DeleteCourse(ctx context.Context, p *policy.Principal, id int64) error
}

// Handler обрабатывает запросы на удаление курса.
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
// @Summary Удалить курс
// @Tags Courses
// @Param id path int true "ID курса"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/ [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courseremove.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	if err := h.service.DeleteCourse(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id); err != nil {
		log.Error("failed to delete course", slog.Int64("course_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("course deleted", slog.Int64("course_id", id))
	render.NoContent(w, r)
}
