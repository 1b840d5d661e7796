package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/config"
	"github.com/acougue-online/storefront/internal/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.ServiceName+"-migrate")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		logger.Fatal("usage: migrate <up|down|version>")
	}

	path := os.Getenv("MIGRATIONS_PATH")
	if path == "" {
		path = "file://migrations"
	}

	m, err := migrate.New(path, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("open migrations", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no pending migrations")
			return
		}
		if err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		logger.Info("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("nothing to roll back")
			return
		}
		if err != nil {
			logger.Fatal("migrate down", zap.Error(err))
		}
		logger.Info("migration rolled back")

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return
		}
		if err != nil {
			logger.Fatal("read version", zap.Error(err))
		}
		logger.Info("current version", zap.Uint("version", v), zap.Bool("dirty", dirty))

	default:
		logger.Fatal("unknown command", zap.String("command", args[0]))
	}
}
