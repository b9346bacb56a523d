// Package main включает существующего пользователя в группу.
//
// Использование:
//
//	addgroup -email editor@example.com -group administrators
//
// Участники группы administrators видят и изменяют все курсы и уроки.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/materials-api/internal/config"
	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
	"github.com/magabrotheeeer/materials-api/internal/policy"
	accountservice "github.com/magabrotheeeer/materials-api/internal/services/account"
	"github.com/magabrotheeeer/materials-api/internal/storage"
)

const timeout = 30 * time.Second

func main() {
	email := flag.String("email", "", "email пользователя")
	group := flag.String("group", policy.AdministratorsGroup, "имя группы")
	flag.Parse()

	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stderr)

	if *email == "" {
		logger.Error("email is required")
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
	u, err := accounts.AddToGroup(ctx, *email, *group)
	if err != nil {
		logger.Error("failed to add user to group", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("user added to group", slog.Int64("user_id", u.ID), slog.String("group", *group))
}
