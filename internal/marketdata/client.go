package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tradepulse/backend/internal/gateway"
	"github.com/tradepulse/backend/pkg/logger"
)

// Client talks to the market-data provider's REST API. Every call
// goes through the gateway; the client itself never opens a socket.
type Client struct {
	gw     *gateway.Gateway
	logger *logger.Logger
}

// NewClient creates a provider client on top of a gateway instance.
func NewClient(gw *gateway.Gateway, log *logger.Logger) *Client {
	return &Client{
		gw:     gw,
		logger: log,
	}
}

// Symbols fetches the full symbol listing for an exchange.
func (c *Client) Symbols(ctx context.Context, exchange string) ([]SymbolEntry, error) {
	payload, err := c.gw.Fetch(ctx, "/stock/symbol", url.Values{"exchange": {exchange}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbol listing: %w", err)
	}

	var entries []SymbolEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode symbol listing: %w", err)
	}

	return entries, nil
}

// Quote fetches the live quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	payload, err := c.gw.Fetch(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	var quote Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote for %s: %w", symbol, err)
	}

	return &quote, nil
}

// Profile fetches the company profile for a symbol.
func (c *Client) Profile(ctx context.Context, symbol string) (*Profile, error) {
	payload, err := c.gw.Fetch(ctx, "/stock/profile2", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
	}

	var profile Profile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile for %s: %w", symbol, err)
	}

	return &profile, nil
}

// Metrics fetches the fundamentals bundle for a symbol and extracts
// the fields the pipeline reads.
func (c *Client) Metrics(ctx context.Context, symbol string) (*Metrics, error) {
	payload, err := c.gw.Fetch(ctx, "/stock/metric", url.Values{
		"symbol": {symbol},
		"metric": {"all"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics for %s: %w", symbol, err)
	}

	var resp metricResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode metrics for %s: %w", symbol, err)
	}

	m := &Metrics{
		EPSGrowth:     metricValue(resp.Metric, "epsGrowthTTMYoy"),
		RevenueGrowth: metricValue(resp.Metric, "revenueGrowthTTMYoy"),
		PERatio:       metricValue(resp.Metric, "peTTM"),
	}
	if v := metricValue(resp.Metric, "10DayAverageTradingVolume"); v != nil {
		m.AvgVolume10D = *v
	}
	if v := metricValue(resp.Metric, "13WeekPriceReturnDaily"); v != nil {
		m.Week13Return = *v
	}

	return m, nil
}

// Recommendations fetches analyst recommendation records, newest first.
func (c *Client) Recommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	payload, err := c.gw.Fetch(ctx, "/stock/recommendation", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendations for %s: %w", symbol, err)
	}

	var recs []Recommendation
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations for %s: %w", symbol, err)
	}

	return recs, nil
}

// CompanyNews fetches company news between from and to (inclusive days).
func (c *Client) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsArticle, error) {
	payload, err := c.gw.Fetch(ctx, "/company-news", url.Values{
		"symbol": {symbol},
		"from":   {from.Format("2006-01-02")},
		"to":     {to.Format("2006-01-02")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
	}

	var articles []NewsArticle
	if err := json.Unmarshal(payload, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode news for %s: %w", symbol, err)
	}

	return articles, nil
}

// metricValue reads a numeric metric; nil means the provider did not
// report it.
func metricValue(metric map[string]interface{}, key string) *float64 {
	raw, ok := metric[key]
	if !ok || raw == nil {
		return nil
	}

	v, ok := raw.(float64)
	if !ok {
		return nil
	}

	return &v
}
