// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package store

import (
	"database/sql"
	"embed"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations_sqlite/*.sql
var embedMigrationsSQLite embed.FS

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrationsSQLite)
	goose.SetTableName("db_version")

	if err := goose.SetDialect("sqlite3"); err != nil {
		slog.Error("Failed to set goose dialect", "error", err)
		return err
	}

	startTime := time.Now()
	if err := goose.Up(db, "migrations_sqlite"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}

	slog.Debug("Database migrations completed", "duration", time.Since(startTime).Round(time.Millisecond).String())

	return nil
}
