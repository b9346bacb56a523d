// Package coursecreate реализует HTTP-обработчик создания курса.
// Владельцем курса становится пользователь, выполнивший запрос.
package coursecreate

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

// Service описывает интерфейс бизнес-логики создания курса.
type Service interface {
	CreateCourse(ctx context.Context, p *policy.Principal, req models.DummyCourse) (*models.CourseView, error)
}

// Handler обрабатывает запросы на создание курса.
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
// @Summary Создать курс
// @Tags Courses
// @Accept json
// @Produce json
// @Param request body models.DummyCourse true "Данные курса"
// @Success 201 {object} models.CourseView
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Router /courses/ [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.coursecreate.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCourse
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.CreateCourse(r.Context(), middlewarectx.PrincipalFrom(r.Context()), req)
	if err != nil {
		log.Error("failed to create course", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("course created", slog.Int64("course_id", res.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
