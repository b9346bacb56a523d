package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/materials-api/internal/migrations"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

// setupTestDB поднимает PostgreSQL в контейнере и применяет миграции проекта.
func setupTestDB(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	pgPort := nat.Port("5432/tcp")

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{string(pgPort)},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(pgPort),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, pgPort)
	require.NoError(t, err, "failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	t.Cleanup(func() {
		_ = storage.Close()
	})

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

func createTestUser(t *testing.T, s *Storage, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash", IsActive: true}
	_, err := s.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func createTestCourse(t *testing.T, s *Storage, ownerID int64, name string) *models.Course {
	t.Helper()
	c, err := s.CreateCourse(context.Background(), &models.Course{Name: name, OwnerID: &ownerID})
	require.NoError(t, err)
	return c
}

func createTestLesson(t *testing.T, s *Storage, courseID, ownerID int64, name string) *models.Lesson {
	t.Helper()
	l, err := s.CreateLesson(context.Background(), &models.Lesson{
		Name:     name,
		Video:    "https://www.youtube.com/watch?v=" + name,
		CourseID: courseID,
		OwnerID:  &ownerID,
	})
	require.NoError(t, err)
	return l
}
