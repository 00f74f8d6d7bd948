// Command seed initializes a fresh database with the default categories
// and an administrator account. Running it against an already seeded
// database is safe: categories are only created when none exist, and a
// duplicate admin email fails without touching anything else.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"galleria/internal/database"
)

const defaultDatabaseDir = "/database"

var defaultCategories = []string{"Conferences", "Training", "Events"}

func main() {
	email := flag.String("email", "", "administrator email (required)")
	password := flag.String("password", "", "administrator password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed -email <email> -password <password>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "galleria.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	if err := seed(ctx, db, *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, db *database.Database, email, password string) error {
	count, err := db.CountCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count == 0 {
		for _, name := range defaultCategories {
			if _, err := db.CreateCategory(ctx, name); err != nil {
				return fmt.Errorf("failed to create category %q: %w", name, err)
			}
			fmt.Printf("Created category %q\n", name)
		}
	} else {
		fmt.Printf("Categories already present (%d), skipping\n", count)
	}

	id, err := db.CreateUser(ctx, email, password, true)
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}
	fmt.Printf("Created administrator %s (%s)\n", email, id)

	return nil
}
