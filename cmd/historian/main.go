// cmd/historian drains the match result queue into PostgreSQL.
//
//	historian                       run the queue consumer
//	historian adduser NAME PASSWORD create an account with the starter deck
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/cardmage/internal/cache"
	"github.com/jason-s-yu/cardmage/internal/config"
	"github.com/jason-s-yu/cardmage/internal/database"
	"github.com/jason-s-yu/cardmage/internal/historian"
	"github.com/jason-s-yu/cardmage/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.PostgresURL == "" {
		logger.Fatal("PG_URL or PG_HOST must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to apply schema")
	}

	if len(os.Args) > 1 && os.Args[1] == "adduser" {
		if len(os.Args) != 4 {
			logger.Fatal("usage: historian adduser NAME PASSWORD")
		}
		u, err := store.CreateUser(ctx, os.Args[2], os.Args[3], []models.Deck{models.DefaultDeck()})
		if err != nil {
			logger.WithError(err).Fatal("failed to create user")
		}
		logger.WithFields(logrus.Fields{"id": u.ID, "username": u.Username}).Info("user created")
		return
	}

	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR must be set")
	}
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rdb.Close()

	historian.New(rdb, cfg.ResultQueueName, store, config.LoadHistorian(), logger).Run(ctx)
}
