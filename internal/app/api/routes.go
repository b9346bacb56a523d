package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/course/coursecreate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/course/courselist"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/course/courseread"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/course/courseremove"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/course/courseupdate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/health"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/lesson/lessoncreate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/lesson/lessonlist"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/lesson/lessonread"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/lesson/lessonremove"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/lesson/lessonupdate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/media/upload"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentcheckout"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentread"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentremove"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/payment/paymentupdate"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/subscription/toggle"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/register"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/token"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/tokenrefresh"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/userlist"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/userread"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/userremove"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/user/userupdate"
	"github.com/magabrotheeeer/materials-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/materials-api/internal/metrics"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	authservice "github.com/magabrotheeeer/materials-api/internal/services/auth"
	courseservice "github.com/magabrotheeeer/materials-api/internal/services/course"
	mediaservice "github.com/magabrotheeeer/materials-api/internal/services/media"
	paymentservice "github.com/magabrotheeeer/materials-api/internal/services/payment"
	subservice "github.com/magabrotheeeer/materials-api/internal/services/subscription"
)

// Deps — сервисы и настройки, из которых собираются маршруты.
type Deps struct {
	Auth          *authservice.AuthService
	Accounts      *accountservice.AccountService
	Courses       *courseservice.Service
	Subscriptions *subservice.SubscriptionService
	Payments      *paymentservice.PaymentService
	Media         *mediaservice.MediaService
	Metrics       *metrics.Metrics
	Pingers       map[string]health.Pinger
	RateLimit     config.RateLimit
	CORS          config.CORS
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		cors.Handler(cors.Options{
			AllowedOrigins:   d.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		d.Metrics.Middleware,
	)

	r.Get("/health", health.New(logger, d.Pingers).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	limiter := middlewarectx.RateLimitMiddleware(rate.NewLimiter(rate.Limit(d.RateLimit.RPS), d.RateLimit.Burst), logger)

	// Регистрация и выдача токенов не читают Authorization: просроченный access-токен
	// в заголовке не должен мешать его обновлению.
	r.Group(func(r chi.Router) {
		r.Use(limiter)

		registerHandler := register.New(logger, d.Accounts).ServeHTTP
		r.Post("/user/", registerHandler)
		r.Post("/user/create/", registerHandler)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.CredentialsLimit(d.RateLimit.AuthPerMinute))
			r.Post("/user/token/", token.New(logger, d.Auth).ServeHTTP)
			r.Post("/user/token/refresh/", tokenrefresh.New(logger, d.Auth).ServeHTTP)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Use(middlewarectx.JWTMiddleware(d.Auth, logger))
		r.Use(middlewarectx.RequirePrincipal)

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", courselist.New(logger, d.Courses).ServeHTTP)
			r.Post("/", coursecreate.New(logger, d.Courses).ServeHTTP)
			r.Get("/{id}/", courseread.New(logger, d.Courses).ServeHTTP)
			r.Patch("/{id}/", courseupdate.New(logger, d.Courses).ServeHTTP)
			r.Delete("/{id}/", courseremove.New(logger, d.Courses).ServeHTTP)
			r.Put("/{id}/preview/", upload.New(logger, d.Media.SetCoursePreview, "preview").ServeHTTP)
		})

		r.Route("/lesson", func(r chi.Router) {
			r.Get("/", lessonlist.New(logger, d.Courses).ServeHTTP)
			r.Post("/create/", lessoncreate.New(logger, d.Courses).ServeHTTP)
			r.Get("/{id}/", lessonread.New(logger, d.Courses).ServeHTTP)
			r.Patch("/update/{id}/", lessonupdate.New(logger, d.Courses).ServeHTTP)
			r.Delete("/delete/{id}/", lessonremove.New(logger, d.Courses).ServeHTTP)
			r.Put("/{id}/preview/", upload.New(logger, d.Media.SetLessonPreview, "preview").ServeHTTP)
		})

		r.Post("/subs/create/", toggle.New(logger, d.Subscriptions).ServeHTTP)

		r.Get("/user/", userlist.New(logger, d.Accounts).ServeHTTP)
		r.Get("/user/{id}/", userread.New(logger, d.Accounts).ServeHTTP)
		r.Patch("/user/update/{id}/", userupdate.New(logger, d.Accounts).ServeHTTP)
		r.Delete("/user/delete/{id}/", userremove.New(logger, d.Accounts).ServeHTTP)
		r.Put("/user/{id}/avatar/", upload.New(logger, d.Media.SetAvatar, "avatar").ServeHTTP)

		r.Route("/payments", func(r chi.Router) {
			createHandler := paymentcreate.New(logger, d.Payments).ServeHTTP
			r.Get("/", paymentlist.New(logger, d.Payments).ServeHTTP)
			r.Post("/", createHandler)
			r.Post("/create/", createHandler)
			r.Get("/{id}/", paymentread.New(logger, d.Payments).ServeHTTP)
			r.Patch("/{id}/", paymentupdate.New(logger, d.Payments).ServeHTTP)
			r.Delete("/{id}/", paymentremove.New(logger, d.Payments).ServeHTTP)
			r.Get("/{id}/status/", paymentstatus.New(logger, d.Payments).ServeHTTP)
			r.Post("/{id}/checkout/", paymentcheckout.New(logger, d.Payments).ServeHTTP)
		})
	})
}
