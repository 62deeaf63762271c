package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/parkpass/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("parkpass-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		run(ctx, pool, upFiles)
	case "down":
		run(ctx, pool, downFiles)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// upFiles returns the forward migrations in name order.
func upFiles(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, ".sql") && !strings.HasSuffix(n, ".down.sql") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// downFiles returns the rollback migrations in reverse name order.
func downFiles(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, ".down.sql") {
			out = append(out, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func run(ctx context.Context, pool *pgxpool.Pool, pick func([]string) []string) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		log.Fatalf("read %s: %v", migrationsDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	for _, name := range pick(names) {
		f := filepath.Join(migrationsDir, name)
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}
