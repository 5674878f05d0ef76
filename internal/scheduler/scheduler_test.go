package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/pkg/logger"
)

type fakeJob struct {
	name string
	runs atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return "0 0 5 * * *" }

func (j *fakeJob) Run(context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&fakeJob{name: "daily_picks"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "daily_picks"}))
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(logger.NewNop())
	job := &fakeJob{name: "daily_picks"}
	require.NoError(t, s.AddJob(job))

	assert.Error(t, s.RunJob("unknown"), "unregistered job names are rejected")

	require.NoError(t, s.RunJob("daily_picks"))
	assert.Eventually(t, func() bool {
		stats, ok := s.GetJobStats()["daily_picks"]
		return ok && stats.TotalRuns == 1
	}, 2*time.Second, 10*time.Millisecond, "manual trigger must land in job history")

	stats := s.GetJobStats()["daily_picks"]
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.EqualValues(t, 1, job.runs.Load())
}
