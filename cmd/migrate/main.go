package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/logger"
	"github.com/straye-as/estate-sales-api/migrations"
	"go.uber.org/zap"
)

// createDir is where "create" writes new migration files, relative to the repo root
const createDir = "./migrations"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate [up|up-to VERSION|down|status|version|create NAME]")
	}
	command, arguments := args[0], args[1:]

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// The database password may live in Key Vault
	ctx := context.Background()
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetBaseFS(migrations.FS)

	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("failed to run up migrations: %w", err)
		}
		log.Info("Migrations applied successfully")

	case "up-to":
		if len(arguments) == 0 {
			return fmt.Errorf("up-to requires a version")
		}
		var version int64
		if _, err := fmt.Sscan(arguments[0], &version); err != nil {
			return fmt.Errorf("invalid version %q: %w", arguments[0], err)
		}
		if err := goose.UpToContext(ctx, db, ".", version); err != nil {
			return fmt.Errorf("failed to migrate up to %d: %w", version, err)
		}
		log.Info("Migrations applied", zap.Int64("version", version))

	case "down":
		if err := goose.DownContext(ctx, db, "."); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
		log.Info("Migration rolled back successfully")

	case "status":
		if err := goose.StatusContext(ctx, db, "."); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

	case "version":
		if err := goose.VersionContext(ctx, db, "."); err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}

	case "create":
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		// New files go to disk, not the embedded FS
		goose.SetBaseFS(nil)
		goose.SetSequential(true)
		if err := goose.Create(db, createDir, arguments[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		log.Info("Migration created", zap.String("name", arguments[0]))

	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	return nil
}
