package picks

import "time"

// Pick accumulates across pipeline phases and is persisted as an
// immutable snapshot for its pick date. Growth and valuation fields
// are pointers because the provider omits them for thin coverage.
type Pick struct {
	Symbol string `json:"symbol"`

	// Market data
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	AvgVolume     float64 `json:"avgVolume"`
	MarketCap     float64 `json:"marketCap"`

	// Analyst consensus
	StrongBuy     int    `json:"strongBuy"`
	Buy           int    `json:"buy"`
	Hold          int    `json:"hold"`
	Sell          int    `json:"sell"`
	StrongSell    int    `json:"strongSell"`
	BuyRatio      int    `json:"buyRatio"`
	Consensus     string `json:"consensus"`
	TotalAnalysts int    `json:"totalAnalysts"`

	// Fundamentals
	EPSGrowth     *float64 `json:"epsGrowth"`
	RevenueGrowth *float64 `json:"revenueGrowth"`
	PERatio       *float64 `json:"peRatio"`
	Week13Return  float64  `json:"week13Return"`
	AboveMA50     bool     `json:"aboveMA50"`

	// Sentiment
	SentimentScore float64 `json:"sentimentScore"`
	SentimentLabel string  `json:"sentimentLabel"`
	NewsPositive   int     `json:"newsPositiveCount"`
	NewsNegative   int     `json:"newsNegativeCount"`
	NewsTotal      int     `json:"newsTotalCount"`

	// Derived
	MomentumScore int    `json:"momentumScore"`
	AIScore       int    `json:"aiScore"`
	Category      string `json:"category,omitempty"`
	Reason        string `json:"reason,omitempty"`

	PickDate  time.Time `json:"pickDate"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Run kinds.
const (
	RunKindFull   = "full"
	RunKindSeed   = "seed"
	RunKindManual = "manual"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is the per-day execution marker used as the idempotency guard.
type Run struct {
	RunDate    time.Time  `json:"runDate"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	PicksCount int        `json:"picksCount"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
