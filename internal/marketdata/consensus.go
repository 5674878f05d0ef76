package marketdata

import (
	"context"
	"fmt"
	"math"
)

// Consensus label thresholds over the buy ratio (percent).
const (
	strongBuyThreshold  = 70
	buyThreshold        = 50
	sellThreshold       = 30
	strongSellThreshold = 15
)

// FetchConsensus retrieves the most recent analyst-recommendation
// record and distills it. Symbols without any analyst coverage return
// ErrNoSignal.
func (c *Client) FetchConsensus(ctx context.Context, symbol string) (*Consensus, error) {
	recs, err := c.Recommendations(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s has no recommendation records", ErrNoSignal, symbol)
	}

	// Records come newest first.
	return buildConsensus(recs[0])
}

// buildConsensus computes the buy ratio and label from one record.
func buildConsensus(rec Recommendation) (*Consensus, error) {
	total := rec.StrongBuy + rec.Buy + rec.Hold + rec.Sell + rec.StrongSell
	if total == 0 {
		return nil, fmt.Errorf("%w: %s has zero analysts", ErrNoSignal, rec.Symbol)
	}

	buyRatio := int(math.Round(float64(rec.StrongBuy+rec.Buy) / float64(total) * 100))

	return &Consensus{
		StrongBuy:     rec.StrongBuy,
		Buy:           rec.Buy,
		Hold:          rec.Hold,
		Sell:          rec.Sell,
		StrongSell:    rec.StrongSell,
		TotalAnalysts: total,
		BuyRatio:      buyRatio,
		Label:         consensusLabel(buyRatio),
	}, nil
}

// consensusLabel maps a buy ratio to the five-level label.
func consensusLabel(buyRatio int) string {
	switch {
	case buyRatio > strongBuyThreshold:
		return "Strong Buy"
	case buyRatio > buyThreshold:
		return "Buy"
	case buyRatio <= strongSellThreshold:
		return "Strong Sell"
	case buyRatio <= sellThreshold:
		return "Sell"
	default:
		return "Hold"
	}
}
