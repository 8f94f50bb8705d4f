// Утилита миграций схемы магазина: migrate [flags] <up|down|status>.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/storage/postgres"
)

const commandTimeout = 30 * time.Second

func main() {
	var (
		steps int
		dsn   string
	)
	flag.IntVar(&steps, "steps", 0, "how many migrations to apply (0=all) or roll back (0=1)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: HELADERIA_POSTGRES_DSN)")
	flag.Parse()

	command := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch command {
	case "up", "down", "status":
	case "":
		fail("usage: migrate [-dsn ...] [-steps N] <up|down|status>")
	default:
		fail("unknown command: %s (use up|down|status)", command)
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("HELADERIA_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("HELADERIA_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	switch command {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			fail("migrate up failed: %v", err)
		}
	case "down":
		if err := store.MigrateDown(ctx, steps); err != nil {
			fail("migrate down failed: %v", err)
		}
	case "status":
		// Версию печатает общий хвост ниже.
	}

	version, applied, err := store.MigrationStatus(ctx)
	if err != nil {
		fail("migration status failed: %v", err)
	}
	fmt.Printf("%s ok: schema version=%d applied=%d\n", command, version, applied)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
