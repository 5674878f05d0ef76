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

// statusCmd prints today's run state and pick count.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's pipeline run state",
	Long: `Shows the run markers and persisted pick count for today.

Example:
  picks status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := picks.NewRepository(db.Pool, log)

	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := repo.CountForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("count picks: %w", err)
	}

	fmt.Printf("Date:  %s\n", date.Format("2006-01-02"))
	fmt.Printf("Picks: %d\n", count)
	fmt.Println("Runs:")

	found := false
	for _, kind := range []string{picks.RunKindFull, picks.RunKindSeed, picks.RunKindManual} {
		run, err := repo.LastRun(ctx, date, kind)
		if err != nil {
			return fmt.Errorf("load run marker: %w", err)
		}
		if run == nil {
			continue
		}
		found = true

		line := fmt.Sprintf("  %-7s %-10s started %s", run.Kind, run.Status,
			run.StartedAt.UTC().Format("15:04:05"))
		if run.FinishedAt != nil {
			line += fmt.Sprintf(", finished %s, %d picks",
				run.FinishedAt.UTC().Format("15:04:05"), run.PicksCount)
		}
		fmt.Println(line)
	}
	if !found {
		fmt.Println("  (none today)")
	}

	return nil
}
