// Package toggle реализует HTTP-обработчик переключения подписки на курс.
// Повторный запрос по тому же курсу снимает подписку.
package toggle

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

// Service описывает интерфейс бизнес-логики подписок.
type Service interface {
	Toggle(ctx context.Context, p *policy.Principal, courseID int64) (models.ToggleResult, error)
}

// Handler обрабатывает запросы на переключение подписки.
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
// @Summary Подписаться на курс или отписаться от него
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body models.DummySubscription true "Курс"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /subs/create/ [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.toggle.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscription
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.Toggle(r.Context(), middlewarectx.PrincipalFrom(r.Context()), req.CourseID)
	if err != nil {
		log.Error("failed to toggle subscription", slog.Int64("course_id", req.CourseID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscription toggled", slog.Int64("course_id", req.CourseID), slog.String("result", string(res)))
	render.JSON(w, r, response.MessageResponse{Message: res.Message()})
}
