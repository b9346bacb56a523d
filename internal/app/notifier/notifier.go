// Package notifier — фоновый процесс: потребляет задачи очереди уведомлений
// и по расписанию деактивирует неактивные учётные записи.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/materials-api/internal/cache"
	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/lib/smtp"
	"github.com/magabrotheeeer/materials-api/internal/metrics"
	"github.com/magabrotheeeer/materials-api/internal/rabbitmq"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	"github.com/magabrotheeeer/materials-api/internal/services/notification"
	"github.com/magabrotheeeer/materials-api/internal/storage"
)

const (
	dbReadyRetries = 10
	dbReadyDelay   = 3 * time.Second
	cronStopWait   = 30 * time.Second
)

// Sweeper деактивирует давно не входившие учётные записи.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// App представляет процесс уведомлений.
type App struct {
	notifications *notification.Service
	sweeper       Sweeper
	schedule      string
	db            *storage.Storage
	cache         *cache.Cache
	conn          *amqp.Connection
	ch            *amqp.Channel
	logger        *slog.Logger
}

func waitForDB(ctx context.Context, db *storage.Storage) error {
	var err error
	for range dbReadyRetries {
		if err = storage.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр процесса уведомлений.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger, schedule: cfg.Sweep.Schedule}

	var err error
	if a.db, err = storage.New(cfg.StorageConnectionString); err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = waitForDB(ctx, a.db); err != nil {
		a.close()
		return nil, err
	}

	if a.cache, err = cache.InitServer(ctx, cfg.RedisConnection); err != nil {
		a.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	if a.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	if a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues()); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	mailer := smtp.NewMailer(smtp.NewTransport(cfg.SMTP, logger), logger)
	a.notifications = notification.New(a.db, a.cache, mailer, cfg.Notification.StaleAfter, m.CourseNotificationsTotal, logger)
	a.sweeper = accountservice.New(a.db, cfg.Sweep.InactiveAfter, m.AccountsDeactivatedTotal, logger)

	return a, nil
}

// Run запускает потребителя очереди и расписание проверки учётных записей до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.CourseUpdatedQueue, a.notifications.HandleCourseUpdated); err != nil {
		a.logger.Error("failed to start course update consumer", sl.Err(err))
		a.close()
		return err
	}

	c := cron.New()
	if err := scheduleSweep(ctx, c, a.schedule, a.sweeper, a.logger); err != nil {
		a.close()
		return err
	}
	c.Start()
	a.logger.Info("notifier started", slog.String("sweep_schedule", a.schedule))

	<-ctx.Done()
	a.logger.Info("shutting down notifier")

	select {
	case <-c.Stop().Done():
	case <-time.After(cronStopWait):
		a.logger.Warn("sweep did not finish before shutdown")
	}
	a.close()
	return nil
}

// scheduleSweep регистрирует запуск s.Sweep по расписанию spec.
func scheduleSweep(ctx context.Context, c *cron.Cron, spec string, s Sweeper, log *slog.Logger) error {
	_, err := c.AddFunc(spec, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			log.Error("account sweep failed", sl.Err(err))
			return
		}
		log.Info("account sweep done", slog.Int("deactivated", n))
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return nil
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
