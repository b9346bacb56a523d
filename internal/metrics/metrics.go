// Package metrics описывает метрики Prometheus сервиса и middleware для HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — набор счётчиков и гистограмм одного процесса.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	SubscriptionTogglesTotal   *prometheus.CounterVec
	PaymentsCreatedTotal       *prometheus.CounterVec
	CourseNotificationsTotal   *prometheus.CounterVec
	AccountsDeactivatedTotal   prometheus.Counter
}

// New регистрирует метрики в reg. Для процесса используется prometheus.DefaultRegisterer,
// в тестах — отдельный prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SubscriptionTogglesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_toggles_total",
				Help: "Total number of subscription toggles by result.",
			},
			[]string{"result"},
		),
		PaymentsCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_created_total",
				Help: "Total number of payment checkouts by final gateway stage.",
			},
			[]string{"result"},
		),
		CourseNotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "course_notifications_total",
				Help: "Total number of processed course update notifications by result.",
			},
			[]string{"result"},
		),
		AccountsDeactivatedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_deactivated_total",
				Help: "Total number of accounts deactivated for inactivity.",
			},
		),
	}
}

// Middleware считает запросы и их длительность. Путь берётся из шаблона маршрута chi,
// чтобы идентификаторы не раздували число рядов.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
