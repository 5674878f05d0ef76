package marketdata

import (
	"context"
	"sort"
	"time"
)

// maxNewsArticles bounds per-symbol sentiment-analysis cost.
const maxNewsArticles = 20

// FetchNews retrieves company news within a trailing window of
// sinceDays and returns at most the maxNewsArticles most recent items.
func (c *Client) FetchNews(ctx context.Context, symbol string, sinceDays int) ([]NewsArticle, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -sinceDays)

	articles, err := c.CompanyNews(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Datetime > articles[j].Datetime
	})

	if len(articles) > maxNewsArticles {
		articles = articles[:maxNewsArticles]
	}

	return articles, nil
}
