// Package userupdate реализует HTTP-обработчик изменения собственного профиля.
package userupdate

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

// Service описывает интерфейс бизнес-логики изменения профиля.
type Service interface {
	Update(ctx context.Context, p *policy.Principal, id int64, patch models.UserPatch) (*models.PublicProfile, error)
}

// Handler обрабатывает запросы на изменение профиля.
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
// @Summary Изменить профиль
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "ID пользователя"
// @Param request body models.UserPatch true "Изменяемые поля"
// @Success 200 {object} models.PublicProfile
// @Failure 400 {object} response.ValidationErrors
// @Failure 403 {object} response.ErrorResponse
// @Router /user/update/{id}/ [patch]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.userupdate.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}
	var patch models.UserPatch
	if err := request.Decode(r, h.validate, &patch); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	res, err := h.service.Update(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id, patch)
	if err != nil {
		log.Error("failed to update user", slog.Int64("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user updated", slog.Int64("user_id", id))
	render.JSON(w, r, res)
}
