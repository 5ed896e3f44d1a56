package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/tracker/internal/logger"
)

type migrationFile struct {
	version int
	name    string
	path    string
	kind    string // up or down
}

// Migrate applies ("up") or reverts ("down") the numbered SQL files in dir,
// tracking applied versions in schema_migrations
func Migrate(ctx context.Context, db *sql.DB, dir, mode string, log logger.Logger) error {
	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	files, err := loadMigrationFiles(dir, log)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	switch strings.ToLower(mode) {
	case "up":
		return applyUp(ctx, db, files, log)
	case "down":
		return applyDown(ctx, db, files, log)
	default:
		return fmt.Errorf("unknown migration mode: %s", mode)
	}
}

func ensureSchemaMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func loadMigrationFiles(dir string, log logger.Logger) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".sql") {
			continue
		}

		kind := "up"
		if strings.HasSuffix(lower, ".down.sql") {
			kind = "down"
		}

		version, migName, err := parseVersionAndName(name)
		if err != nil {
			log.Warn(context.Background(), "Skipping migration without version prefix", map[string]interface{}{
				"file": name,
			})
			continue
		}

		files = append(files, migrationFile{
			version: version,
			name:    migName,
			path:    filepath.Join(dir, name),
			kind:    kind,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// parseVersionAndName splits 001_lifecycle_schema.up.sql into 1 and
// lifecycle_schema.up.sql
func parseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", errors.New("invalid filename")
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", errors.New("invalid version")
	}
	return version, parts[1], nil
}

func alreadyApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)", version).Scan(&exists)
	return exists, err
}

func applyUp(ctx context.Context, db *sql.DB, files []migrationFile, log logger.Logger) error {
	for _, f := range files {
		if f.kind != "up" {
			continue
		}
		applied, err := alreadyApplied(ctx, db, f.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		log.Info(ctx, "Applying migration", map[string]interface{}{"version": f.version, "name": f.name})
		err = execInTx(ctx, db, f.path, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations(version, name, applied_at) VALUES($1,$2,$3)", f.version, f.name, time.Now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed applying %s: %w", f.path, err)
		}
	}
	return nil
}

func applyDown(ctx context.Context, db *sql.DB, files []migrationFile, log logger.Logger) error {
	var downs []migrationFile
	for _, f := range files {
		if f.kind == "down" {
			downs = append(downs, f)
		}
	}
	sort.Slice(downs, func(i, j int) bool { return downs[i].version > downs[j].version })

	for _, f := range downs {
		applied, err := alreadyApplied(ctx, db, f.version)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}

		log.Info(ctx, "Reverting migration", map[string]interface{}{"version": f.version, "name": f.name})
		err = execInTx(ctx, db, f.path, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version=$1", f.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed reverting %s: %w", f.path, err)
		}
	}
	return nil
}

// execInTx runs a SQL file and the bookkeeping statement in one transaction
func execInTx(ctx context.Context, db *sql.DB, path string, bookkeeping func(tx *sql.Tx) error) error {
	script, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return err
	}
	if err := bookkeeping(tx); err != nil {
		return err
	}
	return tx.Commit()
}
