package pipeline

import (
	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/pkg/logger"
)

// GateConfig defines the progressive filter thresholds.
type GateConfig struct {
	// Liquidity: either signal alone qualifies.
	MinAvgVolume float64 // hundred-thousand-share units
	MinMarketCap float64 // million-dollar units

	// Sentiment floor: strongly bearish coverage is excluded
	// regardless of other strengths.
	MinSentiment float64
}

// DefaultGateConfig returns the production thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinAvgVolume: 0.1,
		MinMarketCap: 300,
		MinSentiment: -0.3,
	}
}

// Filter applies the progressive gates, cheapest first, each stage
// operating on the survivors of the prior stage.
type Filter struct {
	config GateConfig
	logger *logger.Logger
}

// NewFilter creates a filter with the given thresholds.
func NewFilter(config GateConfig, log *logger.Logger) *Filter {
	return &Filter{config: config, logger: log.WithField("component", "filter")}
}

// LiquidityGate keeps candidates with enough trading volume or market
// cap. Either signal alone qualifies.
func (f *Filter) LiquidityGate(candidates []picks.Pick) []picks.Pick {
	return f.apply("liquidity", candidates, func(p picks.Pick) bool {
		return p.AvgVolume > f.config.MinAvgVolume || p.MarketCap > f.config.MinMarketCap
	})
}

// GrowthGate keeps candidates with positive EPS or revenue growth.
// A missing metric fails, it does not pass.
func (f *Filter) GrowthGate(candidates []picks.Pick) []picks.Pick {
	return f.apply("growth", candidates, func(p picks.Pick) bool {
		return (p.EPSGrowth != nil && *p.EPSGrowth > 0) ||
			(p.RevenueGrowth != nil && *p.RevenueGrowth > 0)
	})
}

// TrendGate keeps candidates trading above their trend proxy.
func (f *Filter) TrendGate(candidates []picks.Pick) []picks.Pick {
	return f.apply("trend", candidates, func(p picks.Pick) bool {
		return p.AboveMA50
	})
}

// SentimentGate drops candidates with strongly bearish recent coverage.
func (f *Filter) SentimentGate(candidates []picks.Pick) []picks.Pick {
	return f.apply("sentiment", candidates, func(p picks.Pick) bool {
		return p.SentimentScore >= f.config.MinSentiment
	})
}

// apply runs one gate and logs its pass/filter counts.
func (f *Filter) apply(name string, candidates []picks.Pick, keep func(picks.Pick) bool) []picks.Pick {
	passed := make([]picks.Pick, 0, len(candidates))
	for _, c := range candidates {
		if keep(c) {
			passed = append(passed, c)
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"gate":         name,
		"input":        len(candidates),
		"passed":       len(passed),
		"filtered_out": len(candidates) - len(passed),
	}).Info("Gate applied")

	return passed
}
