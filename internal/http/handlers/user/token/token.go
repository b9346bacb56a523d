// Package token реализует HTTP-обработчик выдачи пары JWT по email и паролю.
package token

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/materials-api/internal/http/request"
	"github.com/magabrotheeeer/materials-api/internal/http/response"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	IssueTokens(ctx context.Context, email, password string) (*models.TokenPair, error)
}

// Handler обрабатывает запросы на получение токенов.
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
// @Summary Получить access и refresh токены
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.Credentials true "Учетные данные"
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} response.ValidationErrors
// @Failure 401 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /user/token/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.token.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.Credentials
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	pair, err := h.service.IssueTokens(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Info("failed to issue tokens", slog.String("email", req.Email), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("tokens issued", slog.String("email", req.Email))
	render.JSON(w, r, pair)
}
