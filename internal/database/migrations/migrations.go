// Package migrations applies the versioned schema scripts embedded in the binary.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed *.sql
var embedded embed.FS

// fileName matches NNN_name.up.sql and NNN_name.down.sql.
var fileName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one schema version with its forward and reverse scripts.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Embedded returns the migrations compiled into the binary.
func Embedded() ([]Migration, error) {
	return Load(embedded)
}

// Load reads every migration at the root of fsys, ordered by version. Files
// that do not follow the naming scheme are skipped; a version without an up
// script is an error.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		m := fileName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || m == nil {
			log.Debug().Str("file", entry.Name()).Msg("Skipping non-migration file")
			continue
		}
		version, _ := strconv.Atoi(m[1])
		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: m[2]}
			byVersion[version] = mig
		}
		if m[3] == "up" {
			mig.Up = string(body)
		} else {
			mig.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" {
			return nil, fmt.Errorf("migration %03d_%s has no up script", mig.Version, mig.Name)
		}
		out = append(out, *mig)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

func ensureTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// Applied returns the applied versions in ascending order.
func Applied(ctx context.Context, db *sqlx.DB) ([]int, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	return versions, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many ran.
func Up(ctx context.Context, db *sqlx.DB, migrations []Migration) (int, error) {
	applied, err := Applied(ctx, db)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range migrations {
		if slices.Contains(applied, mig.Version) {
			continue
		}
		log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("Running migration")
		err := step(ctx, db, mig.Up,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, mig.Version, mig.Name)
		if err != nil {
			return ran, fmt.Errorf("migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		ran++
	}
	return ran, nil
}

// Down reverts the last n applied migrations, newest first.
func Down(ctx context.Context, db *sqlx.DB, migrations []Migration, n int) error {
	applied, err := Applied(ctx, db)
	if err != nil {
		return err
	}
	slices.Reverse(applied)
	if n < len(applied) {
		applied = applied[:n]
	}

	for _, version := range applied {
		i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
		if i < 0 || migrations[i].Down == "" {
			return fmt.Errorf("migration %03d has no down script", version)
		}
		log.Info().Int("version", version).Str("name", migrations[i].Name).Msg("Rolling back migration")
		if err := step(ctx, db, migrations[i].Down, `DELETE FROM schema_migrations WHERE version = ?`, version); err != nil {
			return fmt.Errorf("rollback %03d: %w", version, err)
		}
	}
	return nil
}

// step runs script and the bookkeeping statement in one transaction.
func step(ctx context.Context, db *sqlx.DB, script, record string, args ...any) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}
