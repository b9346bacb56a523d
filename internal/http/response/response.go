// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и отображения доменных ошибок в HTTP-статусы.
package response

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Response описывает ответ без полезных данных.
type Response struct {
	Status string `json:"status" example:"OK"`
}

// ErrorResponse — структура ошибки. Используется в аннотациях @Failure.
type ErrorResponse struct {
	Status    string `json:"status" example:"Error"`
	Error     string `json:"error" example:"not found"`
	PaymentID int64  `json:"payment_id,omitempty"`
}

// MessageResponse — ответ с текстовым сообщением.
type MessageResponse struct {
	Message string `json:"message" example:"subscription added"`
}

// ValidationErrors — ошибки по полям в формате {"field": ["message"]}.
type ValidationErrors map[string][]string

// OK возвращает успешный Response.
func OK() Response {
	return Response{Status: StatusOK}
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// StatusFor возвращает HTTP-статус для доменной ошибки.
func StatusFor(err error) int {
	var verr *models.ValidationError
	var gerr *models.GatewayError
	switch {
	case errors.As(err, &verr), errors.Is(err, models.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &gerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RenderError пишет ответ для доменной ошибки. Текст внутренних ошибок клиенту не раскрывается.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	render.Status(r, status)

	var verr *models.ValidationError
	var gerr *models.GatewayError
	switch {
	case errors.As(err, &verr):
		render.JSON(w, r, ValidationErrors(verr.Fields))
	case errors.Is(err, models.ErrEmailTaken):
		render.JSON(w, r, ValidationErrors{"email": {models.ErrEmailTaken.Error()}})
	case errors.As(err, &gerr):
		resp := Error("payment gateway error")
		resp.PaymentID = gerr.PaymentID
		render.JSON(w, r, resp)
	case status == http.StatusUnauthorized:
		for _, known := range []error{models.ErrInvalidCredentials, models.ErrInvalidToken, models.ErrUnauthenticated} {
			if errors.Is(err, known) {
				render.JSON(w, r, Error(known.Error()))
				return
			}
		}
	case status == http.StatusForbidden:
		render.JSON(w, r, Error(models.ErrForbidden.Error()))
	case status == http.StatusNotFound:
		render.JSON(w, r, Error(models.ErrNotFound.Error()))
	default:
		render.JSON(w, r, Error("internal error"))
	}
}
