package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationName matches NNNN_name.up.sql and NNNN_name.down.sql.
var migrationName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one schema step. Up and Down are applied inside a transaction
// together with the bookkeeping row in schema_migrations.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

type migrator struct {
	files fs.FS
	dir   string
	now   func() time.Time
}

func defaultMigrator() migrator {
	return migrator{files: migrationsFS, dir: "migrations", now: time.Now}
}

func parseMigrationName(filename string) (version int, name, direction string, err error) {
	m := migrationName.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", "", fmt.Errorf("%q does not match NNNN_name.{up,down}.sql", filename)
	}
	version, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, "", "", fmt.Errorf("version %q: %w", m[1], err)
	}
	if version == 0 {
		return 0, "", "", fmt.Errorf("%q: versions start at 1", filename)
	}
	return version, m[2], m[3], nil
}

// load reads every migration pair, sorted by version. A version with only one
// half or two files for the same half is an error.
func (mg migrator) load() ([]Migration, error) {
	entries, err := fs.ReadDir(mg.files, mg.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, direction, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, err
		}

		body, err := fs.ReadFile(mg.files, mg.dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("version %d has two names: %q and %q", version, m.Name, name)
		}

		half := &m.Up
		if direction == "down" {
			half = &m.Down
		}
		if *half != "" {
			return nil, fmt.Errorf("version %d has more than one %s file", version, direction)
		}
		*half = string(body)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("version %d (%s) needs both up and down files", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

func (mg migrator) applied(ctx context.Context, conn *sql.DB) (map[int]bool, error) {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// step runs one migration body and its bookkeeping statement atomically.
func step(ctx context.Context, conn *sql.DB, body, record string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (mg migrator) up(ctx context.Context, conn *sql.DB) error {
	all, err := mg.load()
	if err != nil {
		return err
	}
	done, err := mg.applied(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range all {
		if done[m.Version] {
			continue
		}
		log.Debug().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		err := step(ctx, conn, m.Up,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, mg.now().Unix())
		if err != nil {
			return fmt.Errorf("apply %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (mg migrator) down(ctx context.Context, conn *sql.DB, n int) error {
	if n < 1 {
		return fmt.Errorf("revert count must be at least 1, got %d", n)
	}

	all, err := mg.load()
	if err != nil {
		return err
	}
	done, err := mg.applied(ctx, conn)
	if err != nil {
		return err
	}

	var applied []Migration
	for _, m := range slices.Backward(all) {
		if done[m.Version] {
			applied = append(applied, m)
		}
	}
	if n > len(applied) {
		return fmt.Errorf("cannot revert %d migrations, %d applied", n, len(applied))
	}

	for _, m := range applied[:n] {
		log.Debug().Int("version", m.Version).Str("name", m.Name).Msg("reverting migration")
		err := step(ctx, conn, m.Down, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
		if err != nil {
			return fmt.Errorf("revert %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func migrateUp(ctx context.Context, conn *sql.DB) error {
	return defaultMigrator().up(ctx, conn)
}

// MigrateDown reverts the newest n applied migrations.
func MigrateDown(ctx context.Context, conn *sql.DB, n int) error {
	return defaultMigrator().down(ctx, conn, n)
}
