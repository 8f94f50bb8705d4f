package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "sql/migrations"
	// Ключ advisory lock: сериализует миграции при одновременном старте
	// нескольких инстансов магазина.
	schemaLockKey = int64(77031205)
	lockTimeout   = 5 * time.Second
)

// schemaMigration — одна версия схемы с парой up/down скриптов.
type schemaMigration struct {
	version int64
	name    string
	up      string
	down    string
}

func (m schemaMigration) label() string {
	return fmt.Sprintf("%04d_%s", m.version, m.name)
}

// MigrateUp применяет недостающие up-миграции; steps=0 означает все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigrations(ctx, true, steps)
}

// MigrateDown откатывает steps последних миграций; steps<=0 трактуется как 1.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.runMigrations(ctx, false, steps)
}

// MigrationStatus возвращает текущую версию схемы и число применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("postgres store is not initialized")
	}

	if err := ensureSchemaJournal(ctx, s.db); err != nil {
		return 0, 0, err
	}

	var (
		version int64
		count   int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations`,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, count, nil
}

func (s *Store) runMigrations(ctx context.Context, up bool, steps int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	migrations, err := loadSchemaMigrations(migrationsFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	return withSchemaLock(ctx, conn, func() error {
		if err := ensureSchemaJournal(ctx, conn); err != nil {
			return err
		}
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		plan := planMigrations(migrations, applied, up, steps)
		for _, m := range plan {
			if err := applyMigration(ctx, conn, m, up); err != nil {
				return err
			}
		}
		return nil
	})
}

// withSchemaLock выполняет fn под advisory lock схемы.
func withSchemaLock(ctx context.Context, conn *sql.Conn, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, schemaLockKey)
	}()
	return fn()
}

// planMigrations выбирает миграции к выполнению: недостающие по возрастанию
// для up, применённые по убыванию для down; steps>0 ограничивает число шагов.
func planMigrations(migrations []schemaMigration, applied map[int64]bool, up bool, steps int) []schemaMigration {
	plan := make([]schemaMigration, 0, len(migrations))
	if up {
		for _, m := range migrations {
			if !applied[m.version] {
				plan = append(plan, m)
			}
		}
	} else {
		for i := len(migrations) - 1; i >= 0; i-- {
			if applied[migrations[i].version] {
				plan = append(plan, migrations[i])
			}
		}
	}
	if steps > 0 && len(plan) > steps {
		plan = plan[:steps]
	}
	return plan
}

// applyMigration выполняет скрипт и правит журнал в одной транзакции.
func applyMigration(ctx context.Context, conn *sql.Conn, m schemaMigration, up bool) error {
	script := m.down
	journal := `DELETE FROM schema_migrations WHERE version = $1`
	journalArgs := []any{m.version}
	if up {
		script = m.up
		journal = `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`
		journalArgs = []any{m.version, m.name}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.label(), err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", m.label(), err)
	}
	if _, err := tx.ExecContext(ctx, journal, journalArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("journal migration %s: %w", m.label(), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.label(), err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureSchemaJournal(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
		    version BIGINT PRIMARY KEY,
		    name TEXT NOT NULL,
		    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema journal: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return applied, nil
}

// loadSchemaMigrations читает пары NNNN_name.up.sql / NNNN_name.down.sql.
// Миграция без одной из половин или с пустым скриптом считается ошибкой.
func loadSchemaMigrations(fsys fs.FS) ([]schemaMigration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	byVersion := make(map[int64]*schemaMigration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()

		var base string
		var isUp bool
		switch {
		case strings.HasSuffix(file, ".up.sql"):
			base, isUp = strings.TrimSuffix(file, ".up.sql"), true
		case strings.HasSuffix(file, ".down.sql"):
			base, isUp = strings.TrimSuffix(file, ".down.sql"), false
		default:
			return nil, fmt.Errorf("unexpected file in migrations dir: %s", file)
		}

		rawVersion, name, ok := strings.Cut(base, "_")
		if !ok || name == "" {
			return nil, fmt.Errorf("migration file %s: want NNNN_name.(up|down).sql", file)
		}
		version, err := strconv.ParseInt(rawVersion, 10, 64)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration file %s: bad version %q", file, rawVersion)
		}

		body, err := fs.ReadFile(fsys, path.Join(migrationsDir, file))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		script := strings.TrimSpace(string(body))
		if script == "" {
			return nil, fmt.Errorf("migration %s is empty", file)
		}

		m, found := byVersion[version]
		if !found {
			m = &schemaMigration{version: version, name: name}
			byVersion[version] = m
		} else if m.name != name {
			return nil, fmt.Errorf("version %d has conflicting names %q and %q", version, m.name, name)
		}

		if isUp {
			if m.up != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			m.up = script
		} else {
			if m.down != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			m.down = script
		}
	}

	if len(byVersion) == 0 {
		return nil, fmt.Errorf("no migration files found")
	}

	migrations := make([]schemaMigration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("migration %s needs both up and down scripts", m.label())
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}
