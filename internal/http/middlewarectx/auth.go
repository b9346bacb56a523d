// Package middlewarectx содержит HTTP middleware: опознание пользователя по JWT
// и ограничение частоты запросов.
//
// JWTMiddleware разбирает заголовок Authorization и кладёт в контекст запроса
// *policy.Principal. Запрос без заголовка проходит как анонимный; RequirePrincipal
// отклоняет его раньше, чем обработчик начнёт читать тело.
// Неверный или просроченный токен даёт HTTP 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/materials-api/internal/http/response"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// PrincipalKey — ключ для *policy.Principal в контексте.
const PrincipalKey Key = "principal"

// Authenticator опознаёт пользователя по access-токену.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*policy.Principal, error)
}

// JWTMiddleware возвращает HTTP middleware, который опознаёт пользователя по заголовку Authorization.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenStr == "" {
				log.Warn("malformed authorization header")
				response.RenderError(w, r, models.ErrInvalidToken)
				return
			}

			p, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				if !errors.Is(err, models.ErrInvalidToken) {
					log.Error("failed to authenticate request", sl.Err(err))
				}
				response.RenderError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrincipal отвечает HTTP 401 на анонимный запрос.
// Ставится после JWTMiddleware.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFrom(r.Context()) == nil {
			response.RenderError(w, r, models.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFrom возвращает пользователя запроса или nil для анонимного запроса.
func PrincipalFrom(ctx context.Context) *policy.Principal {
	p, _ := ctx.Value(PrincipalKey).(*policy.Principal)
	return p
}
