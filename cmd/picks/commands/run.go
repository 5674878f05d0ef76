package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradepulse/backend/internal/gateway"
	"github.com/tradepulse/backend/internal/marketdata"
	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/internal/scoring"
	"github.com/tradepulse/backend/internal/sentiment"
	"github.com/tradepulse/backend/pkg/config"
	"github.com/tradepulse/backend/pkg/database"
	"github.com/tradepulse/backend/pkg/logger"
)

// runCmd executes one pipeline pass from the command line.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pick pipeline once and exit",
	Long: `Runs one pipeline pass against the full universe (or a given
symbol list) and persists the results.

The run is guarded: if today's picks already exist it is skipped
unless --force is set.

Example:
  picks run
  picks run --force
  picks run --symbols AAPL,MSFT,NVDA`,
	RunE: runPipelineOnce,
}

var (
	runForce   bool
	runSymbols []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "bypass the once-per-day guard")
	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "restrict the run to these symbols")
}

func runPipelineOnce(cmd *cobra.Command, args []string) error {
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

	repo := picks.NewRepository(db.Pool, log)
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	gw := gateway.New(gateway.Options{
		Name:        "batch",
		BaseURL:     cfg.Finnhub.BaseURL,
		Token:       cfg.Finnhub.APIKey,
		PerMinute:   cfg.Finnhub.BatchLimit,
		PerSecond:   cfg.Finnhub.RequestsPerSec,
		CallTimeout: cfg.Finnhub.CallTimeout,
	}, log)

	p := pipeline.New(
		marketdata.NewClient(gw, log),
		sentiment.NewAnalyzer(),
		scoring.NewEngine(scoring.DefaultWeights()),
		pipeline.NewFilter(pipeline.DefaultGateConfig(), log),
		repo,
		nil,
		cfg.Pipeline,
		log,
	)

	summary, err := p.Run(ctx, pipeline.Options{
		Kind:    picks.RunKindManual,
		Force:   runForce,
		Symbols: runSymbols,
	})
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if summary.Skipped {
		fmt.Println("Picks already generated for today; use --force to rerun")
		return nil
	}

	fmt.Printf("Run completed in %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("  universe:  %d\n", summary.UniverseSize)
	fmt.Printf("  consensus: %d\n", summary.Consensus)
	fmt.Printf("  enriched:  %d\n", summary.Enriched)
	fmt.Printf("  finalists: %d\n", summary.Finalists)
	fmt.Printf("  persisted: %d\n", summary.Persisted)
	return nil
}
