package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/materials-api/internal/cache"
	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/lib/jwt"
	"github.com/magabrotheeeer/materials-api/internal/metrics"
	"github.com/magabrotheeeer/materials-api/internal/migrations"
	"github.com/magabrotheeeer/materials-api/internal/rabbitmq"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	authservice "github.com/magabrotheeeer/materials-api/internal/services/auth"
	courseservice "github.com/magabrotheeeer/materials-api/internal/services/course"
	subservice "github.com/magabrotheeeer/materials-api/internal/services/subscription"
	"github.com/magabrotheeeer/materials-api/internal/storage"
)

type recordingQueue struct {
	kinds []rabbitmq.TaskKind
}

func (q *recordingQueue) Enqueue(_ context.Context, kind rabbitmq.TaskKind, _ any) error {
	q.kinds = append(q.kinds, kind)
	return nil
}

// setupServer поднимает PostgreSQL в контейнере, Redis в miniredis и собирает маршруты поверх настоящих сервисов.
func setupServer(t *testing.T) (*httptest.Server, *recordingQueue) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := storage.New(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db.DB, migrationsPath))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisCache, err := cache.InitServer(ctx, config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	queue := &recordingQueue{}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:          authservice.NewAuthService(db, redisCache, jwt.NewJWTMaker("test-secret", time.Minute, time.Hour), logger),
		Accounts:      accountservice.New(db, 0, m.AccountsDeactivatedTotal, logger),
		Courses:       courseservice.New(db, redisCache, queue, logger),
		Subscriptions: subservice.NewSubscriptionService(db, m.SubscriptionTogglesTotal, logger),
		Metrics:       m,
		RateLimit:     config.RateLimit{RPS: 1000, Burst: 1000, AuthPerMinute: 100},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, queue
}

func do(t *testing.T, srv *httptest.Server, method, path, access string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func signUp(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "secret123"}
	status, _ := do(t, srv, http.MethodPost, "/user/create/", "", creds)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, srv, http.MethodPost, "/user/token/", "", creds)
	require.Equal(t, http.StatusOK, status)
	access, ok := body["access"].(string)
	require.True(t, ok)
	return access
}

func TestLessonOwnership(t *testing.T) {
	srv, queue := setupServer(t)

	u1 := signUp(t, srv, "u1@example.com")
	u2 := signUp(t, srv, "u2@example.com")

	status, course := do(t, srv, http.MethodPost, "/courses/", u1, map[string]any{"name": "Go basics"})
	require.Equal(t, http.StatusCreated, status)
	courseID := int64(course["id"].(float64))

	status, lesson := do(t, srv, http.MethodPost, "/lesson/create/", u1, map[string]any{
		"name":   "Intro",
		"video":  "https://www.youtube.com/watch?v=intro",
		"course": courseID,
	})
	require.Equal(t, http.StatusCreated, status)
	lessonPath := fmt.Sprintf("/lesson/%d/", int64(lesson["id"].(float64)))

	status, _ = do(t, srv, http.MethodGet, lessonPath, u2, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := do(t, srv, http.MethodGet, lessonPath, u1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Intro", body["name"])
	assert.Equal(t, "https://www.youtube.com/watch?v=intro", body["video"])
	assert.Equal(t, float64(courseID), body["course"])

	status, _ = do(t, srv, http.MethodGet, lessonPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodPatch, fmt.Sprintf("/courses/%d/", courseID), u1, map[string]any{"name": "Go advanced"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []rabbitmq.TaskKind{rabbitmq.TaskCourseUpdated}, queue.kinds)
}

func TestSubscriptionToggleAndLessonDelete(t *testing.T) {
	srv, _ := setupServer(t)
	u1 := signUp(t, srv, "owner@example.com")

	status, course := do(t, srv, http.MethodPost, "/courses/", u1, map[string]any{"name": "Algorithms"})
	require.Equal(t, http.StatusCreated, status)
	courseID := int64(course["id"].(float64))
	coursePath := fmt.Sprintf("/courses/%d/", courseID)

	status, body := do(t, srv, http.MethodPost, "/subs/create/", u1, map[string]any{"course": courseID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "subscription added", body["message"])

	status, body = do(t, srv, http.MethodGet, coursePath, u1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["subscription"])

	status, body = do(t, srv, http.MethodPost, "/subs/create/", u1, map[string]any{"course": courseID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "subscription removed", body["message"])

	status, lesson := do(t, srv, http.MethodPost, "/lesson/create/", u1, map[string]any{
		"name":   "Sorting",
		"video":  "https://youtu.be/sorting",
		"course": courseID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = do(t, srv, http.MethodDelete, fmt.Sprintf("/lesson/delete/%d/", int64(lesson["id"].(float64))), u1, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = do(t, srv, http.MethodGet, coursePath, u1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["lesson_count"])
	assert.Equal(t, false, body["subscription"])
}
