// Package lessonlist реализует HTTP-обработчик списка уроков.
package lessonlist

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

// Service описывает интерфейс бизнес-логики списка уроков.
type Service interface {
	ListLessons(ctx context.Context, p *policy.Principal, page models.Page) ([]*models.Lesson, error)
}

// Handler обрабатывает запросы на получение списка уроков.
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
// @Summary Список уроков
// @Tags Lessons
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Lesson
// @Failure 401 {object} response.ErrorResponse
// @Router /lesson/ [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lessonlist.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	page, err := request.Page(r)
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.ListLessons(r.Context(), middlewarectx.PrincipalFrom(r.Context()), page)
	if err != nil {
		log.Error("failed to list lessons", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}
