package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Weights defines the component weights of the composite score.
type Weights struct {
	Analyst   float64
	Growth    float64
	Trend     float64
	Momentum  float64
	Sentiment float64
}

// DefaultWeights returns the production weight configuration.
func DefaultWeights() Weights {
	return Weights{
		Analyst:   0.30,
		Growth:    0.20,
		Trend:     0.20,
		Momentum:  0.15,
		Sentiment: 0.15,
	}
}

// Validate checks if weights sum to 1.0
func (w Weights) Validate() bool {
	sum := w.Analyst + w.Growth + w.Trend + w.Momentum + w.Sentiment
	// Allow small floating point error
	return sum >= 0.99 && sum <= 1.01
}

// Input carries the five signals the composite score is a pure
// function of. Growth inputs are pointers because missing fundamentals
// contribute zero, not failure, at scoring time.
type Input struct {
	BuyRatio       int
	ChangePercent  float64
	SentimentScore float64
	EPSGrowth      *float64
	RevenueGrowth  *float64
	Week13Return   float64
}

// Engine combines the weighted signals into a 0-100 ranking score and
// derives category and rationale. It holds no mutable state.
type Engine struct {
	weights Weights
}

// NewEngine creates a scoring engine.
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Score computes the composite score, always in [0, 100].
//
// The pipeline calls it twice per candidate: once with SentimentScore
// fixed at 0 for the top-N cut, once with the real score for the final
// ranking. Running the identical formula both times keeps the two cuts
// comparable; the pre-sentiment cut is an approximation whose error is
// bounded by the sentiment weight, not an invariant.
func (e *Engine) Score(in Input) int {
	total := float64(clampInt(in.BuyRatio, 0, 100))*e.weights.Analyst +
		e.GrowthComponent(in.EPSGrowth, in.RevenueGrowth)*e.weights.Growth +
		e.TrendComponent(in.Week13Return)*e.weights.Trend +
		e.MomentumComponent(in.ChangePercent)*e.weights.Momentum +
		e.SentimentComponent(in.SentimentScore)*e.weights.Sentiment

	return clampInt(int(math.Round(total)), 0, 100)
}

// GrowthComponent averages EPS and revenue growth (missing counts as
// zero), clamps to [-50, 100] and rescales to [0, 100].
func (e *Engine) GrowthComponent(epsGrowth, revenueGrowth *float64) float64 {
	avg := (deref(epsGrowth) + deref(revenueGrowth)) / 2
	return rescale(avg, -50, 100)
}

// TrendComponent clamps the 13-week return to [-30, 30] and rescales.
func (e *Engine) TrendComponent(week13Return float64) float64 {
	return rescale(week13Return, -30, 30)
}

// MomentumComponent clamps the same-day percent change to [-5, 5] and
// rescales.
func (e *Engine) MomentumComponent(changePercent float64) float64 {
	return rescale(changePercent, -5, 5)
}

// SentimentComponent rescales the sentiment score from [-1, 1].
func (e *Engine) SentimentComponent(score float64) float64 {
	return rescale(score, -1, 1)
}

// Categorize assigns the first matching category, or "" when none
// applies. The breakout rule is checked ahead of the price bands so a
// sharp mover is labeled for its move rather than its price bracket.
func (e *Engine) Categorize(price, changePercent float64, buyRatio, score int) string {
	switch {
	case changePercent > 2 && buyRatio >= 50:
		return "Breakout Candidates"
	case price < 50 && score > 60:
		return "Low-Cost Opportunities"
	case price >= 50 && price <= 300 && changePercent > 0:
		return "Mid-Cap Momentum"
	case price > 300 && buyRatio >= 60:
		return "High-Value Premium"
	default:
		return ""
	}
}

// Reason clause thresholds.
const (
	reasonBuyRatioMin = 60
	reasonGrowthMin   = 10.0
	reasonMomentumMin = 1.5
	maxReasonClauses  = 3
)

// Reason builds up to three short clauses explaining the pick, in
// priority order: analyst strength, growth, trend, momentum, sentiment.
func (e *Engine) Reason(in Input, consensusLabel, sentimentLabel string, aboveMA50 bool) string {
	clauses := make([]string, 0, maxReasonClauses)

	if in.BuyRatio >= reasonBuyRatioMin {
		clauses = append(clauses, fmt.Sprintf("%s consensus with %d%% of analysts positive", consensusLabel, in.BuyRatio))
	}

	eps, rev := deref(in.EPSGrowth), deref(in.RevenueGrowth)
	switch {
	case eps >= reasonGrowthMin && rev >= reasonGrowthMin:
		clauses = append(clauses, fmt.Sprintf("EPS up %.1f%% and revenue up %.1f%% year over year", eps, rev))
	case eps >= reasonGrowthMin:
		clauses = append(clauses, fmt.Sprintf("EPS growth of %.1f%% year over year", eps))
	case rev >= reasonGrowthMin:
		clauses = append(clauses, fmt.Sprintf("Revenue growth of %.1f%% year over year", rev))
	}

	if len(clauses) < maxReasonClauses && aboveMA50 {
		clauses = append(clauses, fmt.Sprintf("Positive 13-week trend of %.1f%%", in.Week13Return))
	}

	if len(clauses) < maxReasonClauses && in.ChangePercent >= reasonMomentumMin {
		clauses = append(clauses, fmt.Sprintf("Up %.1f%% today", in.ChangePercent))
	}

	if len(clauses) < maxReasonClauses && sentimentLabel == "Bullish" {
		clauses = append(clauses, "Bullish recent news coverage")
	}

	if len(clauses) == 0 {
		return ""
	}
	return strings.Join(clauses, ". ") + "."
}

// rescale clamps v to [lo, hi] and maps it linearly onto [0, 100].
func rescale(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return (v - lo) / (hi - lo) * 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
