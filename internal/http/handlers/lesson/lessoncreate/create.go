// Package lessoncreate реализует HTTP-обработчик создания урока в существующем курсе.
// Ссылка на видео принимается только с хостов YouTube.
package lessoncreate

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

// Service описывает интерфейс бизнес-логики создания урока.
type Service interface {
	CreateLesson(ctx context.Context, p *policy.Principal, req models.DummyLesson) (*models.Lesson, error)
}

// Handler обрабатывает запросы на создание урока.
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
// @Summary Создать урок
// @Tags Lessons
// @Accept json
// @Produce json
// @Param request body models.DummyLesson true "Данные урока"
// @Success 201 {object} models.Lesson
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Router /lesson/create/ [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lessoncreate.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLesson
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.CreateLesson(r.Context(), middlewarectx.PrincipalFrom(r.Context()), req)
	if err != nil {
		log.Error("failed to create lesson", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("lesson created", slog.Int64("lesson_id", res.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
