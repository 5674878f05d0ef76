package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/pkg/config"
	"github.com/tradepulse/backend/pkg/database"
	"github.com/tradepulse/backend/pkg/logger"
)

// cleanupCmd purges picks past the retention window.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete picks older than the retention window",
	Long: `Deletes persisted picks older than the retention window.

The scheduler runs this daily; the command exists for manual
maintenance and for shrinking the window after the fact.

Example:
  picks cleanup
  picks cleanup --days 3`,
	RunE: runCleanup,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention in days (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	days := cleanupDays
	if days <= 0 {
		days = cfg.Pipeline.RetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := picks.NewRepository(db.Pool, log)
	removed, err := repo.Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Removed %d picks older than %d days\n", removed, days)
	return nil
}
