package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/fixora/tracker/internal/adapter/persistence"
	"github.com/fixora/tracker/internal/config"
	"github.com/fixora/tracker/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "up", "migration mode: up or down")
	dir := flag.String("dir", cfg.Database.MigrationsPath, "directory holding NNN_name.sql and NNN_name.down.sql files")
	flag.Parse()

	// DATABASE_URL wins over the DB_* settings
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.GetDatabaseURL()
	}

	appLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "fixora-migrate",
	})

	ctx := context.Background()
	db, err := persistence.Open(ctx, dsn, persistence.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := persistence.Migrate(ctx, db, *dir, *mode, appLogger); err != nil {
		appLogger.Error(ctx, "Migration failed", err, map[string]interface{}{"mode": *mode, "dir": *dir})
		db.Close()
		os.Exit(1)
	}
}
