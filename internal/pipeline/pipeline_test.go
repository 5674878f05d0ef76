package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/internal/marketdata"
	"github.com/tradepulse/backend/internal/picks"
	"github.com/tradepulse/backend/internal/scoring"
	"github.com/tradepulse/backend/internal/sentiment"
	"github.com/tradepulse/backend/pkg/config"
	"github.com/tradepulse/backend/pkg/logger"
)

type fakeMarket struct {
	universe   []string
	consensus  map[string]*marketdata.Consensus
	enrichment map[string]*marketdata.Enrichment
	news       map[string][]marketdata.NewsArticle
	newsErrs   map[string]error
	newsCalls  []string
}

func (m *fakeMarket) DiscoverUniverse(_ context.Context, _ string) ([]string, error) {
	return m.universe, nil
}

func (m *fakeMarket) FetchConsensus(_ context.Context, symbol string) (*marketdata.Consensus, error) {
	c, ok := m.consensus[symbol]
	if !ok {
		return nil, marketdata.ErrNoSignal
	}
	return c, nil
}

func (m *fakeMarket) FetchEnrichment(_ context.Context, symbol string) (*marketdata.Enrichment, error) {
	e, ok := m.enrichment[symbol]
	if !ok {
		return nil, marketdata.ErrNoSignal
	}
	return e, nil
}

func (m *fakeMarket) FetchNews(_ context.Context, symbol string, _ int) ([]marketdata.NewsArticle, error) {
	m.newsCalls = append(m.newsCalls, symbol)
	if err, ok := m.newsErrs[symbol]; ok {
		return nil, err
	}
	return m.news[symbol], nil
}

type fakeStore struct {
	upserted []picks.Pick
	counts   map[string]int
	runs     map[string]*picks.Run
	cleaned  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts: make(map[string]int),
		runs:   make(map[string]*picks.Run),
	}
}

func runKey(date time.Time, kind string) string {
	return date.Format("2006-01-02") + "/" + kind
}

func (s *fakeStore) UpsertBatch(_ context.Context, batch []picks.Pick) (int, error) {
	s.upserted = append(s.upserted, batch...)
	return len(batch), nil
}

func (s *fakeStore) Cleanup(_ context.Context, _ int) (int64, error) {
	s.cleaned++
	return 0, nil
}

func (s *fakeStore) CountForDate(_ context.Context, date time.Time) (int, error) {
	return s.counts[date.Format("2006-01-02")], nil
}

func (s *fakeStore) BeginRun(_ context.Context, date time.Time, kind string) error {
	s.runs[runKey(date, kind)] = &picks.Run{
		RunDate: date, Kind: kind, Status: picks.RunStatusRunning, StartedAt: time.Now(),
	}
	return nil
}

func (s *fakeStore) CompleteRun(_ context.Context, date time.Time, kind string, picksCount int) error {
	run := s.runs[runKey(date, kind)]
	run.Status = picks.RunStatusCompleted
	run.PicksCount = picksCount
	return nil
}

func (s *fakeStore) FailRun(_ context.Context, date time.Time, kind string) error {
	s.runs[runKey(date, kind)].Status = picks.RunStatusFailed
	return nil
}

func (s *fakeStore) LastRun(_ context.Context, date time.Time, kind string) (*picks.Run, error) {
	return s.runs[runKey(date, kind)], nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Exchange:      "US",
		MaxCandidates: 200,
		NewsDays:      3,
		RetentionDays: 7,
	}
}

func newTestPipeline(market *fakeMarket, store *fakeStore, cfg config.PipelineConfig) *Pipeline {
	log := logger.NewNop()
	return New(
		market,
		sentiment.NewAnalyzer(),
		scoring.NewEngine(scoring.DefaultWeights()),
		NewFilter(DefaultGateConfig(), log),
		store,
		nil,
		cfg,
		log,
	)
}

func strongConsensus() *marketdata.Consensus {
	return &marketdata.Consensus{
		StrongBuy: 10, Buy: 6, Hold: 3, Sell: 1,
		TotalAnalysts: 20, BuyRatio: 80, Label: "Strong Buy",
	}
}

func solidEnrichment() *marketdata.Enrichment {
	return &marketdata.Enrichment{
		Price: 150, Change: 4.4, ChangePercent: 3,
		AvgVolume: 5, MarketCap: 2000,
		EPSGrowth: floatPtr(25), RevenueGrowth: floatPtr(20),
		Week13Return: 10, AboveMA50: true,
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	bearishEnrichment := solidEnrichment()
	weakEnrichment := solidEnrichment()
	weakEnrichment.Week13Return = -5
	weakEnrichment.AboveMA50 = false

	market := &fakeMarket{
		universe: []string{"STRONG", "WEAK", "NOCOV", "BEAR"},
		consensus: map[string]*marketdata.Consensus{
			"STRONG": strongConsensus(),
			"WEAK":   strongConsensus(),
			"BEAR":   strongConsensus(),
		},
		enrichment: map[string]*marketdata.Enrichment{
			"STRONG": solidEnrichment(),
			"WEAK":   weakEnrichment,
			"BEAR":   bearishEnrichment,
		},
		news: map[string][]marketdata.NewsArticle{
			"STRONG": {{Headline: "Shares surge after record quarter"}},
			"BEAR": {
				{Headline: "Stock plunges on fraud probe"},
				{Headline: "Analysts downgrade after weak quarter"},
			},
		},
	}
	store := newFakeStore()
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, 4, summary.UniverseSize)
	assert.Equal(t, 3, summary.Consensus, "symbol without analysts is dropped")
	assert.Equal(t, 3, summary.Enriched)
	assert.Equal(t, 1, summary.Finalists)
	assert.Equal(t, 1, summary.Persisted)

	require.Len(t, store.upserted, 1)
	pick := store.upserted[0]
	assert.Equal(t, "STRONG", pick.Symbol)
	assert.Equal(t, "Breakout Candidates", pick.Category)
	assert.Equal(t, "Bullish", pick.SentimentLabel)
	assert.Equal(t, 74, pick.AIScore)
	assert.Equal(t, 80, pick.MomentumScore)
	assert.NotEmpty(t, pick.Reason)

	run := store.runs[runKey(pick.PickDate, picks.RunKindFull)]
	require.NotNil(t, run)
	assert.Equal(t, picks.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.PicksCount)
	assert.Equal(t, 1, store.cleaned)
}

func TestPipelineSeedSkipsWhenRowsExist(t *testing.T) {
	store := newFakeStore()
	store.counts[time.Now().UTC().Format("2006-01-02")] = 12
	p := newTestPipeline(&fakeMarket{}, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{Kind: picks.RunKindSeed})
	require.NoError(t, err)

	assert.True(t, summary.Skipped)
	assert.Empty(t, store.runs, "skipped runs leave no marker")
}

func TestPipelineFullSkipsWhenAlreadyCompleted(t *testing.T) {
	store := newFakeStore()
	date := today()
	require.NoError(t, store.BeginRun(context.Background(), date, picks.RunKindFull))
	require.NoError(t, store.CompleteRun(context.Background(), date, picks.RunKindFull, 30))

	market := &fakeMarket{universe: []string{"STRONG"}}
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, summary.Skipped)

	// Force bypasses the guard.
	summary, err = p.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
}

func TestPipelineFailedRunAllowsRerun(t *testing.T) {
	store := newFakeStore()
	date := today()
	require.NoError(t, store.BeginRun(context.Background(), date, picks.RunKindFull))
	require.NoError(t, store.FailRun(context.Background(), date, picks.RunKindFull))

	market := &fakeMarket{
		universe:   []string{"STRONG"},
		consensus:  map[string]*marketdata.Consensus{"STRONG": strongConsensus()},
		enrichment: map[string]*marketdata.Enrichment{"STRONG": solidEnrichment()},
	}
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, summary.Persisted)
}

func TestPreliminaryCutBoundsNewsFetches(t *testing.T) {
	better := strongConsensus()
	lesser := strongConsensus()
	lesser.BuyRatio = 55
	lesser.Label = "Buy"

	market := &fakeMarket{
		universe: []string{"TOP", "ALSO"},
		consensus: map[string]*marketdata.Consensus{
			"TOP":  better,
			"ALSO": lesser,
		},
		enrichment: map[string]*marketdata.Enrichment{
			"TOP":  solidEnrichment(),
			"ALSO": solidEnrichment(),
		},
	}
	store := newFakeStore()
	cfg := testPipelineConfig()
	cfg.MaxCandidates = 1
	p := newTestPipeline(market, store, cfg)

	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"TOP"}, market.newsCalls,
		"only the preliminary top candidate reaches the news phase")
}

func TestNewsFetchFailureDropsCandidate(t *testing.T) {
	market := &fakeMarket{
		universe:   []string{"STRONG"},
		consensus:  map[string]*marketdata.Consensus{"STRONG": strongConsensus()},
		enrichment: map[string]*marketdata.Enrichment{"STRONG": solidEnrichment()},
		newsErrs:   map[string]error{"STRONG": errors.New("provider call /company-news failed")},
	}
	store := newFakeStore()
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"STRONG"}, market.newsCalls)
	assert.Equal(t, 0, summary.Finalists, "a failed news fetch makes the symbol unusable for the run")
	assert.Equal(t, 0, summary.Persisted)
	assert.Empty(t, store.upserted)
}

func TestEmptyNewsCoverageReadsAsNeutral(t *testing.T) {
	market := &fakeMarket{
		universe:   []string{"QUIET"},
		consensus:  map[string]*marketdata.Consensus{"QUIET": strongConsensus()},
		enrichment: map[string]*marketdata.Enrichment{"QUIET": solidEnrichment()},
		// No news entry: the fetch succeeds with zero articles.
	}
	store := newFakeStore()
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Persisted)
	require.Len(t, store.upserted, 1)
	pick := store.upserted[0]
	assert.Equal(t, "Neutral", pick.SentimentLabel)
	assert.Equal(t, 0, pick.NewsTotal)
	assert.Equal(t, 67, pick.AIScore)
}

func TestPipelineSymbolsOverrideSkipsDiscovery(t *testing.T) {
	market := &fakeMarket{
		consensus:  map[string]*marketdata.Consensus{"SEED": strongConsensus()},
		enrichment: map[string]*marketdata.Enrichment{"SEED": solidEnrichment()},
	}
	store := newFakeStore()
	p := newTestPipeline(market, store, testPipelineConfig())

	summary, err := p.Run(context.Background(), Options{
		Kind:    picks.RunKindSeed,
		Symbols: []string{"SEED", "MISSING"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UniverseSize)
	assert.Equal(t, 1, summary.Persisted)
}
