// cmd/server/main.go
package main

import (
	"bufio"
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jason-s-yu/cardmage/internal/auth"
	"github.com/jason-s-yu/cardmage/internal/cache"
	"github.com/jason-s-yu/cardmage/internal/cards"
	"github.com/jason-s-yu/cardmage/internal/config"
	"github.com/jason-s-yu/cardmage/internal/database"
	"github.com/jason-s-yu/cardmage/internal/server"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{Logger: logger}
	var authenticators auth.Chain

	if cfg.PostgresURL != "" {
		store, err := database.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("failed to apply schema")
		}
		authenticators = append(authenticators, auth.PasswordAuthenticator{Users: store})
		deps.Users = store
		deps.Results = store
		logger.Info("connected to database")
	}
	if cfg.DevLogin {
		authenticators = append(authenticators, auth.NewDevAuthenticator())
		logger.Warn("development logins enabled")
	}
	deps.Auth = authenticators

	// Redis takes over result reporting so the historian owns the database writes.
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rdb.Close()
		q := cache.NewResultQueue(rdb, cfg.ResultQueueName, 0, logger)
		go q.Run(ctx)
		deps.Results = q
		deps.Actions = q
		logger.WithField("queue", cfg.ResultQueueName).Info("publishing match results to Redis")
	}

	if cfg.CardCatalog != "" {
		catalog, err := cards.Load(cfg.CardCatalog)
		if err != nil {
			logger.WithError(err).Fatal("failed to load card catalog")
		}
		deps.Cards = catalog
	}

	tokens, err := auth.NewTokenIssuer(cfg.TokenExpire)
	if err != nil {
		logger.WithError(err).Fatal("failed to create token issuer")
	}
	deps.Tokens = tokens

	srv := server.New(cfg, deps)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen")
	}
	if cfg.WSAddr != "" {
		wsln, err := net.Listen("tcp", cfg.WSAddr)
		if err != nil {
			logger.WithError(err).Fatal("failed to listen for websockets")
		}
		go func() {
			if err := srv.ServeWS(ctx, wsln); err != nil {
				logger.WithError(err).Error("websocket gateway exited")
			}
		}()
	}

	go srv.Scheduler.Run(ctx)
	go srv.RunPings(ctx)
	go console(logger, stop)

	if err := srv.Serve(ctx, ln); err != nil {
		logger.WithError(err).Error("server exited")
	}
	srv.Scheduler.Wait()
	logger.Info("shutdown complete")
}

// console stops the server when "close" is typed on stdin.
func console(logger logrus.FieldLogger, stop context.CancelFunc) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "close":
			logger.Info("close requested from console")
			stop()
			return
		case "":
		default:
			logger.Warnf("unknown console command %q", sc.Text())
		}
	}
}
