// Package health реализует проверку готовности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/materials-api/internal/http/response"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger — зависимость, доступность которой проверяется.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler отвечает OK, когда все зависимости доступны.
type Handler struct {
	log     *slog.Logger
	pingers map[string]Pinger
}

// New создает Handler; ключи pingers используются в логах.
func New(log *slog.Logger, pingers map[string]Pinger) *Handler {
	return &Handler{
		log:     log,
		pingers: pingers,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health.ServeHTTP"
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.log.Error("dependency unavailable", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(name+" unavailable"))
			return
		}
	}
	render.JSON(w, r, response.OK())
}
