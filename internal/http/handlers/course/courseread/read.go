// Package courseread реализует HTTP-обработчик получения курса по ID
// вместе с уроками, их числом и признаком подписки.
package courseread

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

// Service описывает интерфейс бизнес-логики чтения курса.
type Service interface {
	GetCourse(ctx context.Context, p *policy.Principal, id int64) (*models.CourseView, error)
}

// Handler обрабатывает запросы на получение курса.
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
// @Summary Получить курс
// @Tags Courses
// @Produce json
// @Param id path int true "ID курса"
// @Success 200 {object} models.CourseView
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/ [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courseread.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.GetCourse(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id)
	if err != nil {
		log.Error("failed to read course", slog.Int64("course_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}
