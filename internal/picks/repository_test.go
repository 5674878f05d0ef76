package picks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/pkg/logger"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDedupeLastWriteWins(t *testing.T) {
	batch := []Pick{
		{Symbol: "AAPL", PickDate: day("2026-08-21"), AIScore: 70},
		{Symbol: "MSFT", PickDate: day("2026-08-21"), AIScore: 65},
		{Symbol: "AAPL", PickDate: day("2026-08-21"), AIScore: 82},
	}

	got := dedupe(batch)

	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, 82, got[0].AIScore, "later duplicate must win")
	assert.Equal(t, "MSFT", got[1].Symbol)
}

func TestDedupeKeepsDistinctDates(t *testing.T) {
	batch := []Pick{
		{Symbol: "AAPL", PickDate: day("2026-08-20")},
		{Symbol: "AAPL", PickDate: day("2026-08-21")},
	}

	assert.Len(t, dedupe(batch), 2)
}

func TestDedupeIdempotent(t *testing.T) {
	batch := []Pick{
		{Symbol: "AAPL", PickDate: day("2026-08-21"), AIScore: 70},
		{Symbol: "AAPL", PickDate: day("2026-08-21"), AIScore: 82},
	}

	once := dedupe(batch)
	twice := dedupe(once)
	assert.Equal(t, once, twice)
}

func TestChunks(t *testing.T) {
	batch := make([]Pick, 120)

	got := chunks(batch, 50)

	require.Len(t, got, 3)
	assert.Len(t, got[0], 50)
	assert.Len(t, got[1], 50)
	assert.Len(t, got[2], 20)
}

func TestChunksSmallBatch(t *testing.T) {
	got := chunks(make([]Pick, 3), 50)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 3)
}

func TestChunksEmpty(t *testing.T) {
	assert.Empty(t, chunks(nil, 50))
}

func TestSortClause(t *testing.T) {
	assert.Equal(t, "ai_score DESC", sortClause("aiScore"))
	assert.Equal(t, "price ASC", sortClause("price"))
	assert.Equal(t, "ai_score DESC", sortClause(""), "unknown keys fall back to score")
	assert.Equal(t, "ai_score DESC", sortClause("symbol; DROP TABLE daily_picks"))
}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepositoryUpsertIsIdempotent(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))

	date := day("2026-08-21")
	batch := []Pick{
		{Symbol: "ZZTEST", PickDate: date, Price: 12.5, Consensus: "Buy", SentimentLabel: "Neutral", AIScore: 61},
	}

	_, err := repo.UpsertBatch(ctx, batch)
	require.NoError(t, err)

	batch[0].AIScore = 64
	written, err := repo.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	got, err := repo.List(ctx, ListFilter{Date: date})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for _, p := range got {
		if p.Symbol == "ZZTEST" {
			assert.Equal(t, 64, p.AIScore)
		}
	}

	count, err := repo.CountForDate(ctx, date)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}

func TestRepositoryRunMarkers(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))

	date := day("2026-08-21")
	require.NoError(t, repo.BeginRun(ctx, date, RunKindManual))

	run, err := repo.LastRun(ctx, date, RunKindManual)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, repo.CompleteRun(ctx, date, RunKindManual, 42))

	run, err = repo.LastRun(ctx, date, RunKindManual)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, 42, run.PicksCount)
	assert.NotNil(t, run.FinishedAt)

	missing, err := repo.LastRun(ctx, date.AddDate(0, 0, 1), RunKindManual)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
