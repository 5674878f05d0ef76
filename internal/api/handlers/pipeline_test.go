package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/internal/scheduler"
	"github.com/tradepulse/backend/pkg/logger"
)

type fakeRunner struct {
	mu   sync.Mutex
	opts []pipeline.Options
	done chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.Options) (*pipeline.Summary, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	close(f.done)
	return &pipeline.Summary{Kind: opts.Kind}, nil
}

type fakeMarkers struct {
	runs map[string]*picks.Run
}

func (f *fakeMarkers) LastRun(_ context.Context, _ time.Time, kind string) (*picks.Run, error) {
	return f.runs[kind], nil
}

func TestTriggerRunStartsManualRun(t *testing.T) {
	runner := &fakeRunner{done: make(chan struct{})}
	h := NewPipelineHandler(runner, &fakeMarkers{}, nil, nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run",
		strings.NewReader(`{"force":true,"symbols":["AAPL","MSFT"]}`))
	rec := httptest.NewRecorder()

	h.TriggerRun(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("run was not triggered")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.opts, 1)
	assert.Equal(t, picks.RunKindManual, runner.opts[0].Kind)
	assert.True(t, runner.opts[0].Force)
	assert.Equal(t, []string{"AAPL", "MSFT"}, runner.opts[0].Symbols)
}

func TestTriggerRunAcceptsEmptyBody(t *testing.T) {
	runner := &fakeRunner{done: make(chan struct{})}
	h := NewPipelineHandler(runner, &fakeMarkers{}, nil, nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", nil)
	rec := httptest.NewRecorder()

	h.TriggerRun(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	<-runner.done
}

func TestTriggerRunRejectsBadBody(t *testing.T) {
	runner := &fakeRunner{done: make(chan struct{})}
	h := NewPipelineHandler(runner, &fakeMarkers{}, nil, nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", strings.NewReader(`{"force":`))
	rec := httptest.NewRecorder()

	h.TriggerRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunJobTriggersScheduledJob(t *testing.T) {
	var triggered []string
	runJob := func(name string) error {
		if name != "daily_picks" {
			return fmt.Errorf("job %s not found", name)
		}
		triggered = append(triggered, name)
		return nil
	}
	h := NewPipelineHandler(&fakeRunner{done: make(chan struct{})}, &fakeMarkers{}, nil, runJob, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/daily_picks/run", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "daily_picks"})
	rec := httptest.NewRecorder()

	h.RunJob(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"daily_picks"}, triggered)

	req = httptest.NewRequest(http.MethodPost, "/api/jobs/unknown/run", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "unknown"})
	rec = httptest.NewRecorder()

	h.RunJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatusReportsMarkersAndJobs(t *testing.T) {
	markers := &fakeMarkers{runs: map[string]*picks.Run{
		picks.RunKindFull: {Kind: picks.RunKindFull, Status: picks.RunStatusCompleted, PicksCount: 87},
	}}
	stats := func() map[string]scheduler.JobStats {
		return map[string]scheduler.JobStats{
			"daily_picks": {JobName: "daily_picks", TotalRuns: 5, SuccessRate: 1},
		}
	}
	h := NewPipelineHandler(&fakeRunner{done: make(chan struct{})}, markers, stats, nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/pipeline/status", nil)
	rec := httptest.NewRecorder()

	h.GetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date string                        `json:"date"`
		Runs map[string]picks.Run          `json:"runs"`
		Jobs map[string]scheduler.JobStats `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), body.Date)
	require.Contains(t, body.Runs, picks.RunKindFull)
	assert.Equal(t, 87, body.Runs[picks.RunKindFull].PicksCount)
	require.Contains(t, body.Jobs, "daily_picks")
	assert.Equal(t, 5, body.Jobs["daily_picks"].TotalRuns)
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-08-21")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDate("21/08/2026")
	assert.Error(t, err)

	today, err := parseDate("")
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Format("2006-01-02"))
}

func TestParseFloat(t *testing.T) {
	v, ok := parseFloat("12.5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = parseFloat("")
	assert.False(t, ok)

	_, ok = parseFloat("abc")
	assert.False(t, ok)
}
