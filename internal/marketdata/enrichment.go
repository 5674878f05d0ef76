package marketdata

import (
	"context"
	"fmt"
	"sync"
)

// FetchEnrichment retrieves quote, profile and fundamentals for one
// symbol concurrently, as a fixed group of three calls. A quote with a
// non-positive price is a delisted/no-data sentinel and returns
// ErrNoSignal. Profile or metric failures degrade to zero values
// rather than dropping the symbol; the filter gates decide its fate.
func (c *Client) FetchEnrichment(ctx context.Context, symbol string) (*Enrichment, error) {
	var (
		wg      sync.WaitGroup
		quote   *Quote
		profile *Profile
		metrics *Metrics

		quoteErr, profileErr, metricsErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		quote, quoteErr = c.Quote(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		profile, profileErr = c.Profile(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		metrics, metricsErr = c.Metrics(ctx, symbol)
	}()
	wg.Wait()

	if quoteErr != nil {
		return nil, fmt.Errorf("enrichment for %s unusable: %w", symbol, quoteErr)
	}
	if quote.Current <= 0 {
		return nil, fmt.Errorf("%w: %s has no valid price", ErrNoSignal, symbol)
	}

	if profileErr != nil {
		c.logger.WithField("symbol", symbol).WithError(profileErr).Warn("Profile fetch failed, continuing without market cap")
		profile = &Profile{}
	}
	if metricsErr != nil {
		c.logger.WithField("symbol", symbol).WithError(metricsErr).Warn("Metrics fetch failed, continuing without fundamentals")
		metrics = &Metrics{}
	}

	return &Enrichment{
		Price:         quote.Current,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		AvgVolume:     metrics.AvgVolume10D,
		MarketCap:     profile.MarketCap,
		EPSGrowth:     metrics.EPSGrowth,
		RevenueGrowth: metrics.RevenueGrowth,
		PERatio:       metrics.PERatio,
		Week13Return:  metrics.Week13Return,
		// The 13-week return is the trend proxy for the moving-average
		// position.
		AboveMA50: metrics.Week13Return > 0,
	}, nil
}
