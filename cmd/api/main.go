package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pabloosss/Urlopy/internal/auth"
	"github.com/pabloosss/Urlopy/internal/config"
	"github.com/pabloosss/Urlopy/internal/db"
	"github.com/pabloosss/Urlopy/internal/domain/user"
	httpx "github.com/pabloosss/Urlopy/internal/http"
	"github.com/pabloosss/Urlopy/internal/http/handlers"
	"github.com/pabloosss/Urlopy/internal/http/middlewares"
	"github.com/pabloosss/Urlopy/internal/observability"
	"github.com/pabloosss/Urlopy/internal/queue/redisclient"
	"github.com/pabloosss/Urlopy/internal/repo/memory"
	"github.com/pabloosss/Urlopy/internal/repo/postgres"
	"github.com/pabloosss/Urlopy/internal/security"
	"github.com/pabloosss/Urlopy/internal/service"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	// tracing is opt-in via OTLP_ENDPOINT
	var tracerShutdown func(context.Context) error
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "urlopy-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		tracerShutdown = shutdown
	}

	// storage: postgres by default, memory for local tinkering
	var (
		usersRepo  service.UserStore
		leavesRepo service.LeaveStore
		pool       *pgxpool.Pool
	)

	switch strings.ToLower(cfg.Storage) {
	case "memory":
		store := memory.NewStore()
		usersRepo = store.Users()
		leavesRepo = store.Leaves()

		if err := seedMemoryAdmin(usersRepo, cfg); err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

	default:
		var err error
		pool, err = db.NewPool(cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		ctx, cancel := config.WithTimeout(5 * time.Second)
		err = db.EnsureAdminUser(ctx, pool, cfg)
		cancel()
		if err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

		usersRepo = postgres.NewUsersRepo(pool, prom)
		leavesRepo = postgres.NewLeavesRepo(pool, prom)
	}

	// redis-backed decision notices; the API still works if redis is down,
	// enqueue failures are only logged
	queue := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()

	leaveSvc := service.NewLeaveService(leavesRepo, usersRepo, queue, log)
	userSvc := service.NewUserService(usersRepo)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL)

	ping := func() error {
		if pool == nil {
			return nil
		}
		ctx, cancel := config.WithTimeout(time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}

	router := httpx.NewRouter(httpx.Deps{
		Cfg:    cfg,
		Log:    log,
		Prom:   prom,
		Reg:    reg,
		Auth:   middlewares.NewAuthMiddleware(jwtManager),
		Ping:   ping,
		Tracer: cfg.OTLPEndpoint != "",

		AuthHandler:   handlers.NewAuthHandler(usersRepo, jwtManager),
		LeavesHandler: handlers.NewLeavesHandler(leaveSvc, prom),
		UsersHandler:  handlers.NewUsersHandler(userSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if tracerShutdown != nil {
			if err := tracerShutdown(ctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// seedMemoryAdmin mirrors db.EnsureAdminUser for the in-memory store.
func seedMemoryAdmin(users service.UserStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	_, err = users.Create(context.Background(), user.NewFromCreateRequest(user.CreateUserRequest{
		Email:        cfg.AdminEmail,
		Password:     cfg.AdminPassword,
		Name:         cfg.AdminName,
		Role:         user.RoleAdmin,
		VacationDays: 26,
	}, hash))
	return err
}
