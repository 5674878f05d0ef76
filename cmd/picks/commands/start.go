package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradepulse/backend/internal/api"
	"github.com/tradepulse/backend/internal/api/handlers"
	"github.com/tradepulse/backend/internal/gateway"
	"github.com/tradepulse/backend/internal/marketdata"
	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/internal/scheduler"
	"github.com/tradepulse/backend/internal/scheduler/jobs"
	"github.com/tradepulse/backend/internal/scoring"
	"github.com/tradepulse/backend/internal/sentiment"
	"github.com/tradepulse/backend/pkg/config"
	"github.com/tradepulse/backend/pkg/database"
	"github.com/tradepulse/backend/pkg/logger"
	"github.com/tradepulse/backend/pkg/redis"
)

// startCmd runs the long-lived service: API, scheduler and quick seed.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server and the daily pipeline scheduler",
	Long: `Starts the long-lived picks service.

This command:
- serves the picks read API and the websocket progress feed
- schedules the daily pipeline run after the US close
- runs a reduced quick-seed pass at startup so picks are available
  before the first full run completes

Example:
  picks start
  picks start --port 8090`,
	RunE: runStart,
}

var startPort string

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startPort, "port", "", "API server port (overrides PORT)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if startPort != "" {
		cfg.Port = startPort
	}

	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing picks service")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "tradepulse")

	repo := picks.NewRepository(db.Pool, log)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := repo.EnsureSchema(schemaCtx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	// Two gateway instances with separate windows: the batch one
	// carries the full daily scan, the interactive one keeps the quick
	// seed and targeted runs from queueing behind it.
	batchGateway := gateway.New(gateway.Options{
		Name:        "batch",
		BaseURL:     cfg.Finnhub.BaseURL,
		Token:       cfg.Finnhub.APIKey,
		PerMinute:   cfg.Finnhub.BatchLimit,
		PerSecond:   cfg.Finnhub.RequestsPerSec,
		CallTimeout: cfg.Finnhub.CallTimeout,
	}, log)
	interactiveGateway := gateway.New(gateway.Options{
		Name:        "interactive",
		BaseURL:     cfg.Finnhub.BaseURL,
		Token:       cfg.Finnhub.APIKey,
		PerMinute:   cfg.Finnhub.InteractiveLimit,
		PerSecond:   cfg.Finnhub.RequestsPerSec,
		CallTimeout: cfg.Finnhub.CallTimeout,
	}, log)

	analyzer := sentiment.NewAnalyzer()
	engine := scoring.NewEngine(scoring.DefaultWeights())
	filter := pipeline.NewFilter(pipeline.DefaultGateConfig(), log)
	hub := api.NewHub(log)

	batchPipeline := pipeline.New(
		marketdata.NewClient(batchGateway, log),
		analyzer, engine, filter, repo, hub, cfg.Pipeline, log,
	)
	seedPipeline := pipeline.New(
		marketdata.NewClient(interactiveGateway, log),
		analyzer, engine, filter, repo, hub, cfg.Pipeline, log,
	)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewDailyPicksJob(batchPipeline, cfg.Pipeline.Schedule, log)); err != nil {
		return fmt.Errorf("schedule daily picks: %w", err)
	}
	if err := sched.AddJob(jobs.NewRetentionJob(repo, cfg.Pipeline.RetentionDays, log)); err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Quick seed: a reduced symbol list makes picks available right
	// away; the run guard makes it a no-op once today has rows.
	go func() {
		summary, err := seedPipeline.Run(context.Background(), pipeline.Options{
			Kind:    picks.RunKindSeed,
			Symbols: cfg.Pipeline.SeedSymbols,
		})
		if err != nil {
			log.Errorf("Quick seed run failed: %v", err)
			return
		}
		if !summary.Skipped {
			log.WithField("persisted", summary.Persisted).Info("Quick seed completed")
		}
	}()

	picksHandler := handlers.NewPicksHandler(repo, cache, log)
	pipelineHandler := handlers.NewPipelineHandler(batchPipeline, repo, sched.GetJobStats, sched.RunJob, log)
	router := api.NewRouter(picksHandler, pipelineHandler, hub, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Picks service running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	hub.Close()

	log.Info("Service stopped")
	return nil
}
