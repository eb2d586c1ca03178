package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/tifprobe/internal/pkg/config"
	"github.com/samirrijal/tifprobe/internal/pkg/logging"
)

const migrationsDir = "migrations"

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down>")
		os.Exit(2)
	}

	cfg, err := config.Load("tifprobe-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, "text")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		err = up(ctx, pool, logger)
	case "down":
		err = down(ctx, pool, logger)
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

// upFiles returns the numbered NNN_*.sql files of dir in order.
func upFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "[0-9][0-9][0-9]_*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// pending drops the files whose base name is already recorded.
func pending(files []string, applied map[string]bool) []string {
	var out []string
	for _, f := range files {
		if !applied[filepath.Base(f)] {
			out = append(out, f)
		}
	}
	return out
}

func up(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	applied, err := appliedNames(ctx, pool)
	if err != nil {
		return err
	}
	files, err := upFiles(migrationsDir)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	todo := pending(files, applied)
	for _, f := range todo {
		if err := applyFile(ctx, pool, f); err != nil {
			return err
		}
		logger.Info("applied", "migration", filepath.Base(f))
	}
	logger.Info("schema up to date", "applied", len(todo), "total", len(files))
	return nil
}

func down(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	data, err := os.ReadFile(filepath.Join(migrationsDir, "down.sql"))
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec down.sql: %w", err)
	}
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
		return fmt.Errorf("drop ledger: %w", err)
	}
	logger.Info("schema dropped")
	return nil
}

func appliedNames(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// applyFile runs one migration and records it in the same transaction.
func applyFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", filepath.Base(path), err)
		}
		_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, filepath.Base(path))
		return err
	})
}
