package jobs

import (
	"context"

	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/pkg/logger"
)

// RetentionJob purges picks older than the retention window. The
// pipeline also cleans up after each run; this job covers days where
// no run persisted anything.
type RetentionJob struct {
	repo          *picks.Repository
	retentionDays int
	logger        *logger.Logger
}

// NewRetentionJob creates the retention cleanup job.
func NewRetentionJob(repo *picks.Repository, retentionDays int, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		repo:          repo,
		retentionDays: retentionDays,
		logger:        log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "picks_retention"
}

// Schedule returns the cron schedule (daily at 04:00 UTC).
func (j *RetentionJob) Schedule() string {
	return "0 0 4 * * *"
}

// Run executes the retention cleanup.
func (j *RetentionJob) Run(ctx context.Context) error {
	removed, err := j.repo.Cleanup(ctx, j.retentionDays)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Retention cleanup completed")
	}
	return nil
}
