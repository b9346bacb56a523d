// Package api собирает REST API: хранилище, кеш, очередь уведомлений,
// платёжный провайдер, объектное хранилище и HTTP-маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/materials-api/internal/cache"
	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/http/handlers/health"
	"github.com/magabrotheeeer/materials-api/internal/lib/jwt"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/metrics"
	"github.com/magabrotheeeer/materials-api/internal/migrations"
	"github.com/magabrotheeeer/materials-api/internal/objectstore"
	"github.com/magabrotheeeer/materials-api/internal/paymentprovider"
	"github.com/magabrotheeeer/materials-api/internal/rabbitmq"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	authservice "github.com/magabrotheeeer/materials-api/internal/services/auth"
	courseservice "github.com/magabrotheeeer/materials-api/internal/services/course"
	mediaservice "github.com/magabrotheeeer/materials-api/internal/services/media"
	paymentservice "github.com/magabrotheeeer/materials-api/internal/services/payment"
	subservice "github.com/magabrotheeeer/materials-api/internal/services/subscription"
	"github.com/magabrotheeeer/materials-api/internal/storage"
)

// shutdownTimeout — время на завершение активных запросов при остановке.
const shutdownTimeout = 15 * time.Second

// App — процесс REST API.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает внешние зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "api.New"
	a := &App{logger: logger}

	var err error
	if a.db, err = storage.New(cfg.StorageConnectionString); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(a.db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if a.cache, err = cache.InitServer(ctx, cfg.RedisConnection); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if a.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues()); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := objectstore.New(cfg.Minio)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = store.EnsureBucket(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.AccessTTL, cfg.RefreshTTL)

	deps := Deps{
		Auth:          authservice.NewAuthService(a.db, a.cache, jwtMaker, logger),
		Accounts:      accountservice.New(a.db, cfg.Sweep.InactiveAfter, m.AccountsDeactivatedTotal, logger),
		Courses:       courseservice.New(a.db, a.cache, rabbitmq.NewPublisher(a.ch), logger),
		Subscriptions: subservice.NewSubscriptionService(a.db, m.SubscriptionTogglesTotal, logger),
		Payments:      paymentservice.New(a.db, paymentprovider.New(cfg.Stripe, nil), m.PaymentsCreatedTotal, logger),
		Media:         mediaservice.New(a.db, store, a.cache, logger),
		Metrics:       m,
		Pingers: map[string]health.Pinger{
			"postgres": a.db,
			"redis":    a.cache,
		},
		RateLimit: cfg.RateLimit,
		CORS:      cfg.CORS,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, deps)

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает HTTP до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
