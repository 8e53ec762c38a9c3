package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/billminder/billminder/internal/config"
	"github.com/billminder/billminder/internal/database"
)

// withDB loads configuration, opens the database, and runs fn. Every
// subcommand talks to the database, so the boilerplate lives here.
func withDB(fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	return fn(context.Background(), db)
}
