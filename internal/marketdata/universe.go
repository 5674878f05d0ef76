package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// allowedMics is the fixed allow-list of primary exchange identifiers
// kept in the tradeable universe.
var allowedMics = map[string]bool{
	"XNYS": true, // NYSE
	"XNAS": true, // Nasdaq
	"XASE": true, // NYSE American
}

const commonStockType = "Common Stock"

// DiscoverUniverse fetches the symbol listing for an exchange and
// narrows it to plain common stock on the primary exchanges. Symbols
// carrying a share-class suffix (a dot delimiter) are excluded, so
// each company appears once. Returns symbols in lexical order.
func (c *Client) DiscoverUniverse(ctx context.Context, exchange string) ([]string, error) {
	entries, err := c.Symbols(ctx, exchange)
	if err != nil {
		return nil, fmt.Errorf("universe discovery failed: %w", err)
	}

	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		if !isTradeable(e) {
			continue
		}
		symbols = append(symbols, e.Symbol)
	}
	sort.Strings(symbols)

	c.logger.WithFields(map[string]interface{}{
		"exchange": exchange,
		"listed":   len(entries),
		"retained": len(symbols),
	}).Info("Universe discovered")

	return symbols, nil
}

// isTradeable applies the universe membership rules to one listing row.
func isTradeable(e SymbolEntry) bool {
	if e.Type != commonStockType {
		return false
	}
	if !allowedMics[e.Mic] {
		return false
	}
	if strings.Contains(e.Symbol, ".") {
		return false
	}
	return true
}
