package sentiment

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Label thresholds over the aggregate score.
const (
	bullishThreshold = 0.15
	bearishThreshold = -0.15
)

// Article is the text surface the analyzer scores.
type Article struct {
	Headline string
	Summary  string
}

// Result is the aggregate sentiment signal over a set of articles.
type Result struct {
	// Score is in [-1, 1].
	Score    float64
	Label    string
	Positive int
	Negative int
	Total    int
}

// Analyzer scores headlines against fixed market lexicons. It is a
// deterministic heuristic: per article, the side with more term hits
// wins; neutral articles are not counted.
type Analyzer struct {
	bullish []string
	bearish []string
}

// bullishTerms and bearishTerms are the fixed market lexicons.
var (
	bullishTerms = []string{
		"surge", "soar", "rally", "jump", "gain", "climb", "beat",
		"record", "upgrade", "outperform", "bullish", "strong", "boost",
		"growth", "profit", "breakthrough", "expand", "raise", "buyback",
		"upbeat", "momentum", "top estimate", "all-time high",
	}
	bearishTerms = []string{
		"plunge", "crash", "tumble", "drop", "fall", "slump", "miss",
		"downgrade", "underperform", "bearish", "weak", "cut", "loss",
		"lawsuit", "probe", "recall", "layoff", "tariff", "warning",
		"decline", "sell-off", "bankruptcy", "fraud", "halt",
	}
)

// NewAnalyzer creates an analyzer with the default lexicons.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		bullish: bullishTerms,
		bearish: bearishTerms,
	}
}

// Analyze classifies each article and aggregates into a bounded score.
func (a *Analyzer) Analyze(articles []Article) Result {
	if len(articles) == 0 {
		return Result{Label: "Neutral"}
	}

	var positive, negative int
	for _, article := range articles {
		text := normalize(article.Headline + " " + article.Summary)

		pos := countHits(text, a.bullish)
		neg := countHits(text, a.bearish)

		switch {
		case pos > neg:
			positive++
		case neg > pos:
			negative++
		}
	}

	score := float64(positive-negative) / float64(len(articles))
	score = clamp(score, -1, 1)

	return Result{
		Score:    score,
		Label:    labelFor(score),
		Positive: positive,
		Negative: negative,
		Total:    len(articles),
	}
}

// normalize lowercases the text, stripping embedded HTML markup first.
// Provider news summaries occasionally carry markup from the source.
func normalize(text string) string {
	if strings.Contains(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}
	return strings.ToLower(text)
}

// countHits counts lexicon term occurrences in the text.
func countHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		hits += strings.Count(text, term)
	}
	return hits
}

// labelFor maps a score to its three-level label.
func labelFor(score float64) string {
	switch {
	case score > bullishThreshold:
		return "Bullish"
	case score < bearishThreshold:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
