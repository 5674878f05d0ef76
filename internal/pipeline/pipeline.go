package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tradepulse/backend/internal/marketdata"
	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/scoring"
	"github.com/tradepulse/backend/internal/sentiment"
	"github.com/tradepulse/backend/pkg/config"
	"github.com/tradepulse/backend/pkg/logger"
)

// maxExistingRows is the fallback guard for pick rows that predate the
// run markers: a scheduled run finding more than this many rows for
// today short-circuits.
const maxExistingRows = 5

// MarketData is the provider surface the pipeline consumes.
type MarketData interface {
	DiscoverUniverse(ctx context.Context, exchange string) ([]string, error)
	FetchConsensus(ctx context.Context, symbol string) (*marketdata.Consensus, error)
	FetchEnrichment(ctx context.Context, symbol string) (*marketdata.Enrichment, error)
	FetchNews(ctx context.Context, symbol string, sinceDays int) ([]marketdata.NewsArticle, error)
}

// Store is the persistence surface the pipeline commits through.
type Store interface {
	UpsertBatch(ctx context.Context, batch []picks.Pick) (int, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
	CountForDate(ctx context.Context, date time.Time) (int, error)
	BeginRun(ctx context.Context, date time.Time, kind string) error
	CompleteRun(ctx context.Context, date time.Time, kind string, picksCount int) error
	FailRun(ctx context.Context, date time.Time, kind string) error
	LastRun(ctx context.Context, date time.Time, kind string) (*picks.Run, error)
}

// ProgressEvent is pushed to observers as phases advance.
type ProgressEvent struct {
	Phase     string    `json:"phase"`
	Kind      string    `json:"kind"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives progress events. Implementations must not block.
type Notifier interface {
	Notify(event ProgressEvent)
}

// NopNotifier discards progress events.
type NopNotifier struct{}

func (NopNotifier) Notify(ProgressEvent) {}

// Options selects what a single run processes.
type Options struct {
	// Kind is one of the picks.RunKind values; empty means full.
	Kind string
	// Symbols overrides universe discovery when non-empty (quick seed
	// and targeted manual runs).
	Symbols []string
	// Force bypasses the idempotency guard.
	Force bool
}

// Summary reports what a run did.
type Summary struct {
	Kind         string        `json:"kind"`
	Date         time.Time     `json:"date"`
	Skipped      bool          `json:"skipped"`
	UniverseSize int           `json:"universeSize"`
	Consensus    int           `json:"consensus"`
	Enriched     int           `json:"enriched"`
	Finalists    int           `json:"finalists"`
	Persisted    int           `json:"persisted"`
	Duration     time.Duration `json:"duration"`
}

// Pipeline drives the daily pick flow: universe, consensus,
// enrichment, gates, sentiment, scoring, persistence. Phases run
// strictly in order; per-symbol failures drop the symbol, they never
// abort the run.
type Pipeline struct {
	market   MarketData
	analyzer *sentiment.Analyzer
	engine   *scoring.Engine
	filter   *Filter
	store    Store
	notifier Notifier
	cfg      config.PipelineConfig
	log      *logger.Logger
}

// New creates a pipeline.
func New(
	market MarketData,
	analyzer *sentiment.Analyzer,
	engine *scoring.Engine,
	filter *Filter,
	store Store,
	notifier Notifier,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Pipeline{
		market:   market,
		analyzer: analyzer,
		engine:   engine,
		filter:   filter,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		log:      log.WithField("component", "pipeline"),
	}
}

// Run executes one pipeline pass for today. It is the single entry
// point for scheduled, seed and manual triggers.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Kind == "" {
		opts.Kind = picks.RunKindFull
	}
	date := today()
	started := time.Now()
	log := p.log.WithFields(map[string]interface{}{
		"kind": opts.Kind,
		"date": date.Format("2006-01-02"),
	})

	skip, err := p.shouldSkip(ctx, date, opts)
	if err != nil {
		return nil, err
	}
	if skip {
		log.Info("Run already satisfied for today, skipping")
		return &Summary{Kind: opts.Kind, Date: date, Skipped: true}, nil
	}

	if err := p.store.BeginRun(ctx, date, opts.Kind); err != nil {
		return nil, err
	}

	summary, err := p.execute(ctx, date, opts, log)
	if err != nil {
		if failErr := p.store.FailRun(ctx, date, opts.Kind); failErr != nil {
			log.WithError(failErr).Error("Failed to record run failure")
		}
		return nil, err
	}

	if err := p.store.CompleteRun(ctx, date, opts.Kind, summary.Persisted); err != nil {
		log.WithError(err).Error("Failed to record run completion")
	}

	summary.Duration = time.Since(started)
	log.WithFields(map[string]interface{}{
		"universe":  summary.UniverseSize,
		"finalists": summary.Finalists,
		"persisted": summary.Persisted,
		"duration":  summary.Duration.String(),
	}).Info("Pipeline run completed")

	return summary, nil
}

// shouldSkip implements the idempotency guard.
func (p *Pipeline) shouldSkip(ctx context.Context, date time.Time, opts Options) (bool, error) {
	if opts.Force {
		return false, nil
	}

	if opts.Kind == picks.RunKindSeed {
		// The seed only bridges the gap until the first real run.
		count, err := p.store.CountForDate(ctx, date)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	}

	run, err := p.store.LastRun(ctx, date, picks.RunKindFull)
	if err != nil {
		return false, err
	}
	if run != nil && (run.Status == picks.RunStatusRunning || run.Status == picks.RunStatusCompleted) {
		return true, nil
	}

	// Fallback for rows that predate the run markers.
	count, err := p.store.CountForDate(ctx, date)
	if err != nil {
		return false, err
	}
	return count > maxExistingRows, nil
}

func (p *Pipeline) execute(ctx context.Context, date time.Time, opts Options, log *logger.Logger) (*Summary, error) {
	summary := &Summary{Kind: opts.Kind, Date: date}

	// Phase 1: universe
	symbols := opts.Symbols
	if len(symbols) == 0 {
		discovered, err := p.market.DiscoverUniverse(ctx, p.cfg.Exchange)
		if err != nil {
			return nil, fmt.Errorf("universe discovery failed: %w", err)
		}
		symbols = discovered
	}
	summary.UniverseSize = len(symbols)
	p.notify("universe", opts.Kind, len(symbols))

	// Phase 2: analyst consensus
	candidates := p.consensusPhase(ctx, date, symbols, log)
	summary.Consensus = len(candidates)
	p.notify("consensus", opts.Kind, len(candidates))

	// Phase 3: enrichment
	candidates = p.enrichmentPhase(ctx, candidates, log)
	summary.Enriched = len(candidates)
	p.notify("enrichment", opts.Kind, len(candidates))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 4: cheap gates
	candidates = p.filter.LiquidityGate(candidates)
	candidates = p.filter.GrowthGate(candidates)
	candidates = p.filter.TrendGate(candidates)
	p.notify("gates", opts.Kind, len(candidates))

	// Phase 5: preliminary cut bounds the sentiment phase
	candidates = p.preliminaryCut(candidates)
	p.notify("preliminary", opts.Kind, len(candidates))

	// Phase 6: news sentiment
	candidates = p.sentimentPhase(ctx, candidates, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates = p.filter.SentimentGate(candidates)
	p.notify("sentiment", opts.Kind, len(candidates))

	// Phase 7: final scoring
	p.finalize(candidates)
	summary.Finalists = len(candidates)

	// Phase 8: persistence
	persisted, err := p.store.UpsertBatch(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to persist picks: %w", err)
	}
	summary.Persisted = persisted
	p.notify("persisted", opts.Kind, persisted)

	if _, err := p.store.Cleanup(ctx, p.cfg.RetentionDays); err != nil {
		log.WithError(err).Warn("Retention cleanup failed")
	}

	return summary, nil
}

func (p *Pipeline) consensusPhase(ctx context.Context, date time.Time, symbols []string, log *logger.Logger) []picks.Pick {
	candidates := make([]picks.Pick, 0, len(symbols))
	dropped := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}

		consensus, err := p.market.FetchConsensus(ctx, symbol)
		if err != nil {
			dropped++
			continue
		}

		candidates = append(candidates, picks.Pick{
			Symbol:        symbol,
			PickDate:      date,
			StrongBuy:     consensus.StrongBuy,
			Buy:           consensus.Buy,
			Hold:          consensus.Hold,
			Sell:          consensus.Sell,
			StrongSell:    consensus.StrongSell,
			BuyRatio:      consensus.BuyRatio,
			Consensus:     consensus.Label,
			TotalAnalysts: consensus.TotalAnalysts,
		})
	}

	log.WithFields(map[string]interface{}{
		"input":   len(symbols),
		"passed":  len(candidates),
		"dropped": dropped,
	}).Info("Consensus phase completed")

	return candidates
}

func (p *Pipeline) enrichmentPhase(ctx context.Context, candidates []picks.Pick, log *logger.Logger) []picks.Pick {
	enriched := make([]picks.Pick, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		e, err := p.market.FetchEnrichment(ctx, c.Symbol)
		if err != nil {
			dropped++
			continue
		}

		c.Price = e.Price
		c.Change = e.Change
		c.ChangePercent = e.ChangePercent
		c.AvgVolume = e.AvgVolume
		c.MarketCap = e.MarketCap
		c.EPSGrowth = e.EPSGrowth
		c.RevenueGrowth = e.RevenueGrowth
		c.PERatio = e.PERatio
		c.Week13Return = e.Week13Return
		c.AboveMA50 = e.AboveMA50
		enriched = append(enriched, c)
	}

	log.WithFields(map[string]interface{}{
		"input":   len(candidates),
		"passed":  len(enriched),
		"dropped": dropped,
	}).Info("Enrichment phase completed")

	return enriched
}

// preliminaryCut scores without sentiment and keeps the top N, so the
// per-symbol news fetches stay bounded regardless of universe size.
func (p *Pipeline) preliminaryCut(candidates []picks.Pick) []picks.Pick {
	for i := range candidates {
		candidates[i].AIScore = p.engine.Score(p.scoringInput(candidates[i], 0))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AIScore > candidates[j].AIScore
	})

	if p.cfg.MaxCandidates > 0 && len(candidates) > p.cfg.MaxCandidates {
		candidates = candidates[:p.cfg.MaxCandidates]
	}
	return candidates
}

func (p *Pipeline) sentimentPhase(ctx context.Context, candidates []picks.Pick, log *logger.Logger) []picks.Pick {
	kept := make([]picks.Pick, 0, len(candidates))
	neutral := 0
	dropped := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		articles, err := p.market.FetchNews(ctx, c.Symbol, p.cfg.NewsDays)
		if err != nil {
			// A failed fetch makes the symbol unusable for this run.
			// Only genuinely empty coverage reads as neutral.
			dropped++
			continue
		}
		if len(articles) == 0 {
			neutral++
		}

		result := p.analyzer.Analyze(toSentimentArticles(articles))
		c.SentimentScore = result.Score
		c.SentimentLabel = result.Label
		c.NewsPositive = result.Positive
		c.NewsNegative = result.Negative
		c.NewsTotal = result.Total
		kept = append(kept, c)
	}

	log.WithFields(map[string]interface{}{
		"input":            len(candidates),
		"passed":           len(kept),
		"dropped":          dropped,
		"without_coverage": neutral,
	}).Info("Sentiment phase completed")

	return kept
}

// finalize recomputes the score with the real sentiment signal and
// derives momentum, category and reason text.
func (p *Pipeline) finalize(candidates []picks.Pick) {
	for i := range candidates {
		c := &candidates[i]
		in := p.scoringInput(*c, c.SentimentScore)

		c.AIScore = p.engine.Score(in)
		c.MomentumScore = int(math.Round(p.engine.MomentumComponent(c.ChangePercent)))
		c.Category = p.engine.Categorize(c.Price, c.ChangePercent, c.BuyRatio, c.AIScore)
		c.Reason = p.engine.Reason(in, c.Consensus, c.SentimentLabel, c.AboveMA50)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AIScore > candidates[j].AIScore
	})
}

func (p *Pipeline) scoringInput(c picks.Pick, sentimentScore float64) scoring.Input {
	return scoring.Input{
		BuyRatio:       c.BuyRatio,
		ChangePercent:  c.ChangePercent,
		SentimentScore: sentimentScore,
		EPSGrowth:      c.EPSGrowth,
		RevenueGrowth:  c.RevenueGrowth,
		Week13Return:   c.Week13Return,
	}
}

func (p *Pipeline) notify(phase, kind string, count int) {
	p.notifier.Notify(ProgressEvent{
		Phase:     phase,
		Kind:      kind,
		Count:     count,
		Timestamp: time.Now(),
	})
}

func toSentimentArticles(articles []marketdata.NewsArticle) []sentiment.Article {
	out := make([]sentiment.Article, 0, len(articles))
	for _, a := range articles {
		out = append(out, sentiment.Article{Headline: a.Headline, Summary: a.Summary})
	}
	return out
}

// today returns the current pick date at UTC midnight.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
