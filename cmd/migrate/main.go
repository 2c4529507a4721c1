package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/postgres"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: migrate [flags] up|down|status\n\n")
	flag.PrintDefaults()
}

func main() {
	stepsFlag := flag.Int("steps", 1, "Number of migrations to roll back with down")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	if cfg.Database.Driver != "postgres" {
		// the SQLite schema is created on open
		if command != "up" {
			zap.L().Fatal("Only 'up' is supported for SQLite", zap.String("command", command))
		}
		db, err := database.NewService(context.Background(), cfg.Database)
		if err != nil {
			zap.L().Fatal("Failed to initialize SQLite schema", zap.Error(err))
		}
		db.Close()
		fmt.Printf("SQLite schema ready at %s\n", cfg.Database.Path)
		return
	}

	switch command {
	case "up":
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			zap.L().Fatal("Migration failed", zap.Error(err))
		}
	case "down":
		if err := postgres.MigrateDown(cfg.Database.URL, *stepsFlag); err != nil {
			zap.L().Fatal("Rollback failed", zap.Error(err))
		}
	case "status":
		version, dirty, applied, err := postgres.MigrateStatus(cfg.Database.URL)
		if err != nil {
			zap.L().Fatal("Failed to read migration status", zap.Error(err))
		}
		if !applied {
			fmt.Println("No migrations applied")
			return
		}
		fmt.Printf("Version: %d (dirty: %t)\n", version, dirty)
	default:
		usage()
		os.Exit(2)
	}
}
