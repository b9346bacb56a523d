// Package request разбирает параметры HTTP-запроса: идентификаторы из пути,
// пагинацию и JSON-тело с валидацией.
package request

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

const (
	// DefaultLimit — размер страницы по умолчанию.
	DefaultLimit = 10
	// MaxLimit — наибольший допустимый размер страницы.
	MaxLimit = 100
)

// ID возвращает положительный целый параметр пути name.
// Нечисловой идентификатор не соответствует ни одной записи, поэтому даёт models.ErrNotFound.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrNotFound
	}
	return id, nil
}

// Page разбирает параметры limit и offset.
func Page(r *http.Request) (models.Page, error) {
	page := models.Page{Limit: DefaultLimit}
	q := r.URL.Query()
	verr := &models.ValidationError{}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			verr.Add("limit", "A valid positive integer is required.")
		} else {
			page.Limit = min(n, MaxLimit)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			verr.Add("offset", "A valid non-negative integer is required.")
		} else {
			page.Offset = n
		}
	}
	if len(verr.Fields) > 0 {
		return page, verr
	}
	return page, nil
}

// OptionalInt64 разбирает необязательный целый параметр запроса name.
func OptionalInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidationError(name, "A valid integer is required.")
	}
	return &n, nil
}

// OptionalBool разбирает необязательный логический параметр запроса name.
func OptionalBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidationError(name, "Must be a valid boolean.")
	}
	return &b, nil
}

// Decode читает JSON-тело в dst и проверяет его валидатором v.
func Decode(r *http.Request, v *validator.Validate, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidationError("non_field_errors", "No data provided.")
		}
		return models.NewValidationError("non_field_errors", "JSON parse error.")
	}
	return validation.Struct(v, dst)
}
