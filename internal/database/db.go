// Package database opens the pipeline's SQLite database and keeps its schema current.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/database/migrations"
)

// DB is the pipeline database handle.
type DB struct {
	*sqlx.DB
	path string
}

// NewDB opens the database at cfg.DBPath, creating its directory when needed,
// and applies pending migrations.
func NewDB(cfg *Config) (*DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.DBPath, err)
	}
	for _, pragma := range []string{
		"PRAGMA cache_size = " + itoa(int64(cfg.CacheSizeKB)),
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set PRAGMA")
		}
	}

	files, err := migrations.Embedded()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	applied, err := migrations.Up(ctx, db, files)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Debug().Str("path", cfg.DBPath).Int("migrations_applied", applied).Msg("Database ready")
	return &DB{DB: db, path: cfg.DBPath}, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
