package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationPair(version, name, up, down string) fstest.MapFS {
	return fstest.MapFS{
		"sql/migrations/" + version + "_" + name + ".up.sql":   {Data: []byte(up)},
		"sql/migrations/" + version + "_" + name + ".down.sql": {Data: []byte(down)},
	}
}

func mergeFS(parts ...fstest.MapFS) fstest.MapFS {
	merged := fstest.MapFS{}
	for _, part := range parts {
		for name, file := range part {
			merged[name] = file
		}
	}
	return merged
}

func TestLoadSchemaMigrations_SortedPairs(t *testing.T) {
	t.Parallel()

	fsys := mergeFS(
		migrationPair("0002", "more", "CREATE TABLE test_b (id INT);", "DROP TABLE test_b;"),
		migrationPair("0001", "init", "CREATE TABLE test_a (id INT);", "DROP TABLE test_a;"),
	)

	migrations, err := loadSchemaMigrations(fsys)
	if err != nil {
		t.Fatalf("loadSchemaMigrations failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].version != 1 || migrations[0].name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].version != 2 || migrations[1].name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadSchemaMigrations_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE test_a (id INT);")},
	}

	_, err := loadSchemaMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSchemaMigrations_BadFilename(t *testing.T) {
	t.Parallel()

	for name, fsys := range map[string]fstest.MapFS{
		"no direction suffix": {
			"sql/migrations/not_a_migration.sql": {Data: []byte("SELECT 1;")},
		},
		"no version separator": {
			"sql/migrations/0001.up.sql": {Data: []byte("SELECT 1;")},
		},
		"non-numeric version": {
			"sql/migrations/first_init.up.sql": {Data: []byte("SELECT 1;")},
		},
	} {
		if _, err := loadSchemaMigrations(fsys); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadSchemaMigrations_EmptyScript(t *testing.T) {
	t.Parallel()

	fsys := migrationPair("0001", "init", "   \n", "DROP TABLE test;")

	if _, err := loadSchemaMigrations(fsys); err == nil {
		t.Fatal("expected error for empty migration script")
	}
}

func TestLoadSchemaMigrations_ConflictingNames(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":    {Data: []byte("SELECT 1;")},
		"sql/migrations/0001_other.down.sql": {Data: []byte("SELECT 1;")},
	}

	if _, err := loadSchemaMigrations(fsys); err == nil {
		t.Fatal("expected error for conflicting migration names")
	}
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	migrations := []schemaMigration{
		{version: 1, name: "init", up: "u1", down: "d1"},
		{version: 2, name: "outbox", up: "u2", down: "d2"},
		{version: 3, name: "later", up: "u3", down: "d3"},
	}
	applied := map[int64]bool{1: true, 2: true}

	up := planMigrations(migrations, applied, true, 0)
	if len(up) != 1 || up[0].version != 3 {
		t.Fatalf("unexpected up plan: %+v", up)
	}

	down := planMigrations(migrations, applied, false, 1)
	if len(down) != 1 || down[0].version != 2 {
		t.Fatalf("unexpected down plan: %+v", down)
	}

	downAll := planMigrations(migrations, applied, false, 0)
	if len(downAll) != 2 || downAll[0].version != 2 || downAll[1].version != 1 {
		t.Fatalf("unexpected full down plan: %+v", downAll)
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	migrations, err := loadSchemaMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least the init and outbox migrations, got %d", len(migrations))
	}
}
