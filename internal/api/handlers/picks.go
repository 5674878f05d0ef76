package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/pkg/logger"
	"github.com/tradepulse/backend/pkg/redis"
)

// PicksHandler serves the persisted daily picks.
type PicksHandler struct {
	repo   *picks.Repository
	cache  *redis.Cache
	logger *logger.Logger
}

// NewPicksHandler creates a new picks handler
func NewPicksHandler(repo *picks.Repository, cache *redis.Cache, log *logger.Logger) *PicksHandler {
	return &PicksHandler{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// PicksResponse is the pick listing envelope.
type PicksResponse struct {
	Date  string       `json:"date"`
	Count int          `json:"count"`
	Picks []picks.Pick `json:"picks"`
}

// GetPicks returns picks for a date with optional filters.
// GET /api/picks?date=&category=&minPrice=&maxPrice=&sort=&limit=&offset=
func (h *PicksHandler) GetPicks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	cacheKey := redis.PicksKey(date.Format("2006-01-02"), r.URL.Query().Encode())
	var cached PicksResponse
	if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	filter := picks.ListFilter{
		Date:     date,
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	}
	if v, ok := parseFloat(r.URL.Query().Get("minPrice")); ok {
		filter.MinPrice = &v
	}
	if v, ok := parseFloat(r.URL.Query().Get("maxPrice")); ok {
		filter.MaxPrice = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = v
	}

	result, err := h.repo.List(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list picks")
		respondError(w, http.StatusInternalServerError, "Failed to list picks")
		return
	}
	if result == nil {
		result = []picks.Pick{}
	}

	response := PicksResponse{
		Date:  date.Format("2006-01-02"),
		Count: len(result),
		Picks: result,
	}

	if err := h.cache.Set(ctx, cacheKey, response, redis.TTLPicks); err != nil {
		h.logger.WithError(err).Warn("Failed to cache pick listing")
	}

	respondJSON(w, http.StatusOK, response)
}

// GetCategories returns the category distribution for a date.
// GET /api/picks/categories?date=
func (h *PicksHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	categories, err := h.repo.Categories(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		respondError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []picks.CategoryCount{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"categories": categories,
	})
}

// parseDate reads a YYYY-MM-DD value, defaulting to today (UTC).
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", value)
}

func parseFloat(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
