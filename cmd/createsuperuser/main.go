// Package main создаёт активного суперпользователя с правами персонала.
//
// Использование:
//
//	createsuperuser -email admin@example.com -password secret
//
// Пароль можно передать через переменную SUPERUSER_PASSWORD, чтобы он не попадал в историю команд.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	"github.com/magabrotheeeer/materials-api/internal/storage"
)

const timeout = 30 * time.Second

func main() {
	email := flag.String("email", "", "email суперпользователя")
	password := flag.String("password", os.Getenv("SUPERUSER_PASSWORD"), "пароль суперпользователя")
	flag.Parse()

	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stderr)

	creds := models.DummyUser{Email: *email, Password: *password}
	if err := validation.Struct(validation.New(), &creds); err != nil {
		logger.Error("invalid superuser credentials", sl.Err(err))
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect storage", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	accounts := accountservice.New(db, cfg.Sweep.InactiveAfter, nil, logger)
	u, err := accounts.CreateSuperuser(ctx, creds.Email, creds.Password)
	if err != nil {
		logger.Error("failed to create superuser", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("superuser created", slog.Int64("user_id", u.ID), slog.String("email", u.Email))
}
