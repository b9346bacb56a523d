// Package upload реализует HTTP-обработчик загрузки изображения (multipart/form-data, поле file).
//
// Один и тот же обработчик обслуживает превью курсов, превью уроков и аватары:
// различаются только функция сохранения и имя поля в ответе.
package upload

import (
	"context"
	"errors"
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
	"github.com/magabrotheeeer/materials-api/internal/services/media"
)

const (
	formField = "file"
	// запас на заголовки multipart сверх размера самого файла
	formOverhead = 64 << 10
)

// Func сохраняет изображение для записи id и возвращает ключ объекта.
type Func func(ctx context.Context, p *policy.Principal, id int64, up media.Upload) (string, error)

// Handler обрабатывает загрузку изображения.
type Handler struct {
	log    *slog.Logger
	upload Func
	field  string
}

// New создает Handler; field — имя поля с ключом объекта в ответе.
func New(log *slog.Logger, upload Func, field string) *Handler {
	return &Handler{
		log:    log,
		upload: upload,
		field:  field,
	}
}

// ServeHTTP godoc
// @Summary Загрузить изображение
// @Tags Media
// @Accept mpfd
// @Produce json
// @Param id path int true "ID записи"
// @Param file formData file true "Изображение"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.ValidationErrors
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/preview/ [put]
// @Router /lesson/{id}/preview/ [put]
// @Router /user/{id}/avatar/ [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.media.upload.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageSize+formOverhead)
	file, hdr, err := r.FormFile(formField)
	if err != nil {
		log.Info("invalid upload", sl.Err(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RenderError(w, r, models.NewValidationError(formField, "File is too large."))
			return
		}
		response.RenderError(w, r, models.NewValidationError(formField, "No file was submitted."))
		return
	}
	defer file.Close()

	key, err := h.upload(r.Context(), middlewarectx.PrincipalFrom(r.Context()), id, media.Upload{
		Body:     file,
		Size:     hdr.Size,
		Filename: hdr.Filename,
	})
	if err != nil {
		log.Error("failed to upload image", slog.Int64("id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("image uploaded", slog.Int64("id", id), slog.String("key", key))
	render.JSON(w, r, map[string]string{h.field: key})
}
