// Command migrate applies the schema and seeds the default administrator and
// sample records into empty tables.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"registrar/internal/config"
	"registrar/internal/db"
	"registrar/internal/logging"
)

func main() {
	skipSeed := flag.Bool("skip-seed", false, "apply migrations only")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.WithError(config.ErrMissingDatabaseURL).Fatal("invalid configuration")
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.Info("schema up to date")

	if *skipSeed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:       1,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("db pool setup failed")
	}
	defer pool.Close()

	result, err := db.Seed(ctx, pool, cfg.SeedAdminPassword)
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.WithFields(logrus.Fields{
		"admin_created": result.AdminCreated,
		"students":      result.Students,
		"courses":       result.Courses,
		"teachers":      result.Teachers,
	}).Info("seed complete")
}
