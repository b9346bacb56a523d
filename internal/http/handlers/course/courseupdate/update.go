// Package courseupdate реализует HTTP-обработчик частичного обновления курса.
package courseupdate

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

// Service описывает интерфейс бизнес-логики обновления курса.
type Service interface {
	UpdateCourse(ctx context.Context, p *policy.Principal, id int64, patch models.CoursePatch) (*models.CourseView, error)
}

// Handler обрабатывает запросы на обновление курса.
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
// @Summary Обновить курс
// @Description Подписчики получат письмо, если курс не обновлялся больше 4 часов.
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "ID курса"
// @Param request body models.CoursePatch true "Изменяемые поля"
// @Success 200 {object} models.CourseView
// @Failure 400 {object} response.ValidationErrors
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/ [patch]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.courseupdate.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}
	var patch models.CoursePatch
	if err := request.Decode(r, h.validate, &patch); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.UpdateCourse(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id, patch)
	if err != nil {
		log.Error("failed to update course", slog.Int64("course_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("course updated", slog.Int64("course_id", id))
	render.JSON(w, r, res)
}
