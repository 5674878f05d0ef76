package jobs

import (
	"context"
	"fmt"

	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/pkg/logger"
)

// DailyPicksJob runs the full pick pipeline on the market schedule.
// The pipeline's own run guard keeps a retried execution from
// duplicating a completed day.
type DailyPicksJob struct {
	pipeline *pipeline.Pipeline
	schedule string
	logger   *logger.Logger
}

// NewDailyPicksJob creates the daily pipeline job.
func NewDailyPicksJob(p *pipeline.Pipeline, schedule string, log *logger.Logger) *DailyPicksJob {
	return &DailyPicksJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailyPicksJob) Name() string {
	return "daily_picks"
}

// Schedule returns the configured cron expression.
func (j *DailyPicksJob) Schedule() string {
	return j.schedule
}

// Run executes one full pipeline pass.
func (j *DailyPicksJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily picks run")

	summary, err := j.pipeline.Run(ctx, pipeline.Options{})
	if err != nil {
		return fmt.Errorf("daily picks run failed: %w", err)
	}

	if summary.Skipped {
		j.logger.Info("Daily picks already generated for today")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"universe":  summary.UniverseSize,
		"finalists": summary.Finalists,
		"persisted": summary.Persisted,
		"duration":  summary.Duration.String(),
	}).Info("Daily picks run completed")

	return nil
}
