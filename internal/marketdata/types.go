package marketdata

import "errors"

// ErrNoSignal marks a symbol with no usable data (no analyst coverage,
// no valid price). Callers exclude the symbol silently; it is not a
// provider failure.
var ErrNoSignal = errors.New("no signal for symbol")

// SymbolEntry is one row of the provider's symbol listing.
type SymbolEntry struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Mic         string `json:"mic"`
	Currency    string `json:"currency"`
}

// Quote is a live quote snapshot.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// Profile is the company profile subset this system reads.
type Profile struct {
	Name string `json:"name"`
	// MarketCap is in millions of dollars.
	MarketCap float64 `json:"marketCapitalization"`
	Industry  string  `json:"finnhubIndustry"`
	Exchange  string  `json:"exchange"`
}

// Recommendation is one monthly analyst-recommendation record.
type Recommendation struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// metricResponse is the raw fundamentals bundle; the metric map keys
// are provider-defined and sparsely populated.
type metricResponse struct {
	Metric map[string]interface{} `json:"metric"`
}

// Metrics is the extracted fundamentals subset. Pointers distinguish
// "missing" from zero; the growth gates treat missing as failing.
type Metrics struct {
	// AvgVolume10D is the 10-day average trading volume, in
	// hundred-thousand-share units.
	AvgVolume10D  float64
	EPSGrowth     *float64
	RevenueGrowth *float64
	PERatio       *float64
	Week13Return  float64
}

// NewsArticle is one company-news item.
type NewsArticle struct {
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// Consensus is the distilled analyst signal for a symbol.
type Consensus struct {
	StrongBuy     int
	Buy           int
	Hold          int
	Sell          int
	StrongSell    int
	TotalAnalysts int
	// BuyRatio is the share of strong-buy plus buy ratings, 0-100.
	BuyRatio int
	Label    string
}

// Enrichment is the per-symbol market snapshot collected from quote,
// profile and fundamentals.
type Enrichment struct {
	Price         float64
	Change        float64
	ChangePercent float64
	AvgVolume     float64
	MarketCap     float64
	EPSGrowth     *float64
	RevenueGrowth *float64
	PERatio       *float64
	Week13Return  float64
	AboveMA50     bool
}
