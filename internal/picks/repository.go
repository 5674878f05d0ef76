package picks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepulse/backend/pkg/logger"
)

// upsertChunkSize bounds the rows per transaction so one bad row
// cannot poison the whole batch.
const upsertChunkSize = 50

// Repository handles pick persistence
type Repository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewRepository creates a new pick repository
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, log: log.WithField("component", "picks_repository")}
}

// EnsureSchema creates the pick tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_picks (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			pick_date DATE NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			change DOUBLE PRECISION NOT NULL,
			change_percent DOUBLE PRECISION NOT NULL,
			avg_volume DOUBLE PRECISION NOT NULL,
			market_cap DOUBLE PRECISION NOT NULL,
			strong_buy INT NOT NULL,
			buy INT NOT NULL,
			hold INT NOT NULL,
			sell INT NOT NULL,
			strong_sell INT NOT NULL,
			buy_ratio INT NOT NULL,
			consensus TEXT NOT NULL,
			total_analysts INT NOT NULL,
			eps_growth DOUBLE PRECISION,
			revenue_growth DOUBLE PRECISION,
			pe_ratio DOUBLE PRECISION,
			week13_return DOUBLE PRECISION NOT NULL,
			above_ma50 BOOLEAN NOT NULL,
			sentiment_score DOUBLE PRECISION NOT NULL,
			sentiment_label TEXT NOT NULL,
			news_positive INT NOT NULL,
			news_negative INT NOT NULL,
			news_total INT NOT NULL,
			momentum_score INT NOT NULL,
			ai_score INT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (symbol, pick_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_picks_date_score
			ON daily_picks (pick_date, ai_score DESC)`,
		`CREATE TABLE IF NOT EXISTS pick_runs (
			run_date DATE NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			picks_count INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ,
			PRIMARY KEY (run_date, kind)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure pick schema: %w", err)
		}
	}
	return nil
}

// UpsertBatch persists finalized picks keyed on (symbol, pick_date).
// Duplicates within the batch are collapsed last-write-wins, then rows
// are written in fixed-size chunks, each chunk one transaction. A
// failed chunk is logged and skipped so one bad row does not abort the
// run. Returns the number of rows written.
func (r *Repository) UpsertBatch(ctx context.Context, batch []Pick) (int, error) {
	deduped := dedupe(batch)
	if len(deduped) == 0 {
		return 0, nil
	}

	written := 0
	for i, c := range chunks(deduped, upsertChunkSize) {
		if err := r.upsertChunk(ctx, c); err != nil {
			r.log.WithError(err).WithFields(map[string]interface{}{
				"chunk": i,
				"size":  len(c),
			}).Error("Failed to upsert pick chunk, skipping")
			continue
		}
		written += len(c)
	}

	r.log.WithFields(map[string]interface{}{
		"input":   len(batch),
		"deduped": len(deduped),
		"written": written,
	}).Info("Pick batch persisted")

	return written, nil
}

func (r *Repository) upsertChunk(ctx context.Context, chunk []Pick) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_picks (
			symbol, pick_date, price, change, change_percent, avg_volume, market_cap,
			strong_buy, buy, hold, sell, strong_sell, buy_ratio, consensus, total_analysts,
			eps_growth, revenue_growth, pe_ratio, week13_return, above_ma50,
			sentiment_score, sentiment_label, news_positive, news_negative, news_total,
			momentum_score, ai_score, category, reason
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25,
			$26, $27, $28, $29
		)
		ON CONFLICT (symbol, pick_date) DO UPDATE SET
			price = EXCLUDED.price,
			change = EXCLUDED.change,
			change_percent = EXCLUDED.change_percent,
			avg_volume = EXCLUDED.avg_volume,
			market_cap = EXCLUDED.market_cap,
			strong_buy = EXCLUDED.strong_buy,
			buy = EXCLUDED.buy,
			hold = EXCLUDED.hold,
			sell = EXCLUDED.sell,
			strong_sell = EXCLUDED.strong_sell,
			buy_ratio = EXCLUDED.buy_ratio,
			consensus = EXCLUDED.consensus,
			total_analysts = EXCLUDED.total_analysts,
			eps_growth = EXCLUDED.eps_growth,
			revenue_growth = EXCLUDED.revenue_growth,
			pe_ratio = EXCLUDED.pe_ratio,
			week13_return = EXCLUDED.week13_return,
			above_ma50 = EXCLUDED.above_ma50,
			sentiment_score = EXCLUDED.sentiment_score,
			sentiment_label = EXCLUDED.sentiment_label,
			news_positive = EXCLUDED.news_positive,
			news_negative = EXCLUDED.news_negative,
			news_total = EXCLUDED.news_total,
			momentum_score = EXCLUDED.momentum_score,
			ai_score = EXCLUDED.ai_score,
			category = EXCLUDED.category,
			reason = EXCLUDED.reason,
			updated_at = NOW()
	`

	for _, p := range chunk {
		_, err := tx.Exec(ctx, query,
			p.Symbol, p.PickDate, p.Price, p.Change, p.ChangePercent, p.AvgVolume, p.MarketCap,
			p.StrongBuy, p.Buy, p.Hold, p.Sell, p.StrongSell, p.BuyRatio, p.Consensus, p.TotalAnalysts,
			p.EPSGrowth, p.RevenueGrowth, p.PERatio, p.Week13Return, p.AboveMA50,
			p.SentimentScore, p.SentimentLabel, p.NewsPositive, p.NewsNegative, p.NewsTotal,
			p.MomentumScore, p.AIScore, p.Category, p.Reason,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert pick %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pick chunk: %w", err)
	}
	return nil
}

// Cleanup deletes picks older than the retention window. Returns the
// number of rows removed.
func (r *Repository) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM daily_picks WHERE pick_date < CURRENT_DATE - $1::int`,
		retentionDays,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old picks: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.log.WithFields(map[string]interface{}{
			"removed":        tag.RowsAffected(),
			"retention_days": retentionDays,
		}).Info("Old picks removed")
	}
	return tag.RowsAffected(), nil
}

// CountForDate returns the number of persisted picks for a date.
func (r *Repository) CountForDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_picks WHERE pick_date = $1`, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count picks: %w", err)
	}
	return count, nil
}

// ListFilter narrows and orders a pick listing.
type ListFilter struct {
	Date     time.Time
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Limit    int
	Offset   int
}

// sortColumns whitelists the client-selectable sort keys.
var sortColumns = map[string]string{
	"aiScore":       "ai_score DESC",
	"price":         "price ASC",
	"changePercent": "change_percent DESC",
	"marketCap":     "market_cap DESC",
}

func sortClause(key string) string {
	if clause, ok := sortColumns[key]; ok {
		return clause
	}
	return sortColumns["aiScore"]
}

// List returns the picks for a date, filtered and ordered.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Pick, error) {
	conditions := []string{"pick_date = $1"}
	args := []interface{}{f.Date}

	if f.Category != "" {
		args = append(args, f.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	query := fmt.Sprintf(`
		SELECT symbol, pick_date, price, change, change_percent, avg_volume, market_cap,
			strong_buy, buy, hold, sell, strong_sell, buy_ratio, consensus, total_analysts,
			eps_growth, revenue_growth, pe_ratio, week13_return, above_ma50,
			sentiment_score, sentiment_label, news_positive, news_negative, news_total,
			momentum_score, ai_score, category, reason, created_at, updated_at
		FROM daily_picks
		WHERE %s
		ORDER BY %s, symbol ASC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), sortClause(f.Sort), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var result []Pick
	for rows.Next() {
		var p Pick
		if err := rows.Scan(
			&p.Symbol, &p.PickDate, &p.Price, &p.Change, &p.ChangePercent, &p.AvgVolume, &p.MarketCap,
			&p.StrongBuy, &p.Buy, &p.Hold, &p.Sell, &p.StrongSell, &p.BuyRatio, &p.Consensus, &p.TotalAnalysts,
			&p.EPSGrowth, &p.RevenueGrowth, &p.PERatio, &p.Week13Return, &p.AboveMA50,
			&p.SentimentScore, &p.SentimentLabel, &p.NewsPositive, &p.NewsNegative, &p.NewsTotal,
			&p.MomentumScore, &p.AIScore, &p.Category, &p.Reason, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// CategoryCount pairs a category with its pick count for a date.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Categories returns the category distribution for a date.
func (r *Repository) Categories(ctx context.Context, date time.Time) ([]CategoryCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM daily_picks
		WHERE pick_date = $1 AND category <> ''
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var result []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// BeginRun records a running marker for (date, kind), resetting any
// previous marker for the same key.
func (r *Repository) BeginRun(ctx context.Context, date time.Time, kind string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pick_runs (run_date, kind, status, started_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (run_date, kind) DO UPDATE SET
			status = EXCLUDED.status,
			picks_count = 0,
			started_at = NOW(),
			finished_at = NULL
	`, date, kind, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to begin run marker: %w", err)
	}
	return nil
}

// CompleteRun marks the run finished with its persisted pick count.
func (r *Repository) CompleteRun(ctx context.Context, date time.Time, kind string, picksCount int) error {
	return r.finishRun(ctx, date, kind, RunStatusCompleted, picksCount)
}

// FailRun marks the run failed.
func (r *Repository) FailRun(ctx context.Context, date time.Time, kind string) error {
	return r.finishRun(ctx, date, kind, RunStatusFailed, 0)
}

func (r *Repository) finishRun(ctx context.Context, date time.Time, kind, status string, picksCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pick_runs
		SET status = $3, picks_count = $4, finished_at = NOW()
		WHERE run_date = $1 AND kind = $2
	`, date, kind, status, picksCount)
	if err != nil {
		return fmt.Errorf("failed to finish run marker: %w", err)
	}
	return nil
}

// LastRun returns the marker for (date, kind), or nil when none exists.
func (r *Repository) LastRun(ctx context.Context, date time.Time, kind string) (*Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `
		SELECT run_date, kind, status, picks_count, started_at, finished_at
		FROM pick_runs
		WHERE run_date = $1 AND kind = $2
	`, date, kind).Scan(
		&run.RunDate, &run.Kind, &run.Status, &run.PicksCount, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run marker: %w", err)
	}
	return &run, nil
}

// dedupe collapses duplicates within a batch by (symbol, pick date),
// last write wins, preserving first-seen order.
func dedupe(batch []Pick) []Pick {
	type key struct {
		symbol string
		date   string
	}

	index := make(map[key]int, len(batch))
	result := make([]Pick, 0, len(batch))
	for _, p := range batch {
		k := key{symbol: p.Symbol, date: p.PickDate.Format("2006-01-02")}
		if i, ok := index[k]; ok {
			result[i] = p
			continue
		}
		index[k] = len(result)
		result = append(result, p)
	}
	return result
}

// chunks splits a batch into slices of at most size elements.
func chunks(batch []Pick, size int) [][]Pick {
	if size <= 0 {
		return [][]Pick{batch}
	}

	var out [][]Pick
	for start := 0; start < len(batch); start += size {
		end := start + size
		if end > len(batch) {
			end = len(batch)
		}
		out = append(out, batch[start:end])
	}
	return out
}
