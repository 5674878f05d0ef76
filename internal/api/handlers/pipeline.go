package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/internal/scheduler"
	"github.com/tradepulse/backend/pkg/logger"
)

// PipelineRunner triggers pipeline executions.
type PipelineRunner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Summary, error)
}

// RunMarkers reads the per-day run markers.
type RunMarkers interface {
	LastRun(ctx context.Context, date time.Time, kind string) (*picks.Run, error)
}

// PipelineHandler exposes manual pipeline control and status.
type PipelineHandler struct {
	runner   PipelineRunner
	markers  RunMarkers
	jobStats func() map[string]scheduler.JobStats
	runJob   func(jobName string) error
	logger   *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(
	runner PipelineRunner,
	markers RunMarkers,
	jobStats func() map[string]scheduler.JobStats,
	runJob func(jobName string) error,
	log *logger.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		runner:   runner,
		markers:  markers,
		jobStats: jobStats,
		runJob:   runJob,
		logger:   log,
	}
}

type triggerRequest struct {
	Force   bool     `json:"force"`
	Symbols []string `json:"symbols"`
}

// TriggerRun starts a manual pipeline run in the background. Progress
// is observable on the websocket feed and via GetStatus.
// POST /api/pipeline/run
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if r.Body != nil {
		// An empty body means a plain unforced full run.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	opts := pipeline.Options{
		Kind:    picks.RunKindManual,
		Force:   req.Force,
		Symbols: req.Symbols,
	}

	go func() {
		// Detached from the request: the run outlives the HTTP call.
		summary, err := h.runner.Run(context.Background(), opts)
		if err != nil {
			h.logger.WithError(err).Error("Manual pipeline run failed")
			return
		}
		if summary.Skipped {
			h.logger.Info("Manual pipeline run skipped by guard")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"kind":   picks.RunKindManual,
		"force":  req.Force,
	})
}

// RunJob triggers a registered scheduler job immediately, outside its
// schedule. The outcome lands in the job history shown by GetStatus.
// POST /api/jobs/{name}/run
func (h *PipelineHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.runJob == nil {
		respondError(w, http.StatusNotFound, "No scheduler attached")
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.runJob(name); err != nil {
		h.logger.WithError(err).Warn("Manual job trigger rejected")
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}

// GetStatus reports today's run markers and scheduler job stats.
// GET /api/pipeline/status
func (h *PipelineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDate("")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to resolve date")
		return
	}

	runs := make(map[string]*picks.Run, 3)
	for _, kind := range []string{picks.RunKindFull, picks.RunKindSeed, picks.RunKindManual} {
		run, err := h.markers.LastRun(ctx, date, kind)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load run marker")
			respondError(w, http.StatusInternalServerError, "Failed to load run status")
			return
		}
		if run != nil {
			runs[kind] = run
		}
	}

	response := map[string]interface{}{
		"date": date.Format("2006-01-02"),
		"runs": runs,
	}
	if h.jobStats != nil {
		response["jobs"] = h.jobStats()
	}

	respondJSON(w, http.StatusOK, response)
}
