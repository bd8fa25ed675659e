package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pabloosss/Urlopy/internal/config"
	"github.com/pabloosss/Urlopy/internal/db"
	"github.com/pabloosss/Urlopy/internal/notifications"
	"github.com/pabloosss/Urlopy/internal/observability"
	"github.com/pabloosss/Urlopy/internal/queue/redisclient"
	"github.com/pabloosss/Urlopy/internal/queue/worker"
	"github.com/pabloosss/Urlopy/internal/repo/memory"
	"github.com/pabloosss/Urlopy/internal/repo/postgres"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	var users worker.UserLookup

	switch strings.ToLower(cfg.Storage) {
	case "memory":
		// memory storage lives inside the API process; a standalone worker
		// sees an empty directory, which is only useful for smoke tests
		users = memory.NewStore().Users()

	default:
		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		users = postgres.NewUsersRepo(pool, nil)
	}

	queue := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()

	pingCtx, cancel := config.WithTimeout(3 * time.Second)
	err := queue.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	w := worker.New(
		worker.Config{PollTimeout: 2 * time.Second},
		queue,
		users,
		notifications.NewLogNotifier(log),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("worker starting", "storage", cfg.Storage)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("worker stopped")
}
