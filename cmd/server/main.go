package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"registrar/internal/config"
	"registrar/internal/db"
	internalhttp "registrar/internal/http"
	"registrar/internal/logging"
	"registrar/internal/ratelimit"
	"registrar/internal/repository"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:       cfg.DBMaxConns,
		IdleTimeout:    cfg.DBIdleTimeout,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("db pool setup failed")
	}
	defer pool.Close()

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.LoginRateCapacity, cfg.LoginRatePerSec)
		log.WithField("redis", cfg.RedisAddr).Info("login rate limiting enabled")
	}

	store := repository.NewStore(pool, cfg.DBQueryTimeout)
	server, err := internalhttp.NewServer(cfg, internalhttp.Stores{
		Admins:   store,
		Students: store.Students(),
		Courses:  store.Courses(),
		Teachers: store.Teachers(),
	}, log, limiter)
	if err != nil {
		log.WithError(err).Fatal("server setup failed")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("registrar listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
