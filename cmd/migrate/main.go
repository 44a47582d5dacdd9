package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/JKeiyuru/cornells-sub002/pkg/config"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

func main() {
	flag.Parse()
	cfg := config.Load(".env")
	logger := logging.New(cfg.LogLevel).With("service", "migrate")

	args := flag.Args()
	if len(args) < 1 {
		logger.Error("usage: migrate <up|down|version>")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		logger.Error("migrate_init_failed", "error", err)
		os.Exit(1)
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
			logger.Error("migrate_up_failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("nothing to roll back")
			return
		}
		if err != nil {
			logger.Error("migrate_down_failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migration rolled back")

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return
		}
		if err != nil {
			logger.Error("migrate_version_failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migration version", "version", v, "dirty", dirty)

	default:
		logger.Error("unknown command", "command", args[0])
		os.Exit(1)
	}
}
