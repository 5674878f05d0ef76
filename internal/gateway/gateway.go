package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tradepulse/backend/pkg/logger"
)

const (
	defaultWindow   = time.Minute
	defaultTimeout  = 30 * time.Second
	defaultCooldown = 5 * time.Second

	// One initial attempt plus one retry after a 429 cooldown.
	maxAttempts = 2

	// TTLs: live quotes go stale fast, listing/profile/fundamental
	// data barely moves intraday.
	quoteTTL  = 1 * time.Minute
	staticTTL = 1 * time.Hour
)

// Gateway wraps every provider call with a response cache, a
// sliding-window rate limiter and a bounded retry on throttling.
// All higher components reach the provider through a Gateway only.
//
// Two instances exist in the wired application: an interactive one
// with a low ceiling and a batch one for background scans, so a slow
// scan cannot starve interactive lookups.
type Gateway struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	window     *RateWindow
	smoother   *rate.Limiter // optional per-second smoothing, nil when disabled
	cache      *Cache
	clock      Clock
	logger     *logger.Logger
	cooldown   time.Duration
}

// Options configures a Gateway instance.
type Options struct {
	// Name tags log lines, e.g. "interactive" or "batch".
	Name    string
	BaseURL string
	Token   string

	// PerMinute is the sliding-window ceiling for this instance.
	PerMinute int

	// PerSecond smooths bursts under the per-minute window. 0 disables.
	PerSecond int

	// CallTimeout bounds a single provider call.
	CallTimeout time.Duration

	// ThrottleCooldown is slept after an HTTP 429 before the retry.
	ThrottleCooldown time.Duration

	// Clock is injectable for tests; nil means the system clock.
	Clock Clock

	// Transport is injectable for tests; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// New creates a Gateway with its own rate window and cache.
func New(opts Options, log *logger.Logger) *Gateway {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cooldown := opts.ThrottleCooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	var smoother *rate.Limiter
	if opts.PerSecond > 0 {
		smoother = rate.NewLimiter(rate.Limit(opts.PerSecond), opts.PerSecond)
	}

	return &Gateway{
		name:    opts.Name,
		baseURL: opts.BaseURL,
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		window:   NewRateWindow(opts.PerMinute, defaultWindow, clock),
		smoother: smoother,
		cache:    NewCache(clock),
		clock:    clock,
		logger:   log.WithField("gateway", opts.Name),
		cooldown: cooldown,
	}
}

// Fetch returns the payload for endpoint+params, from cache when a
// fresh entry exists, otherwise from the provider. A cache hit never
// consumes a rate slot. On provider failure the last known payload for
// the key is returned even if expired; only when none exists does
// Fetch fail with a *ProviderError.
func (g *Gateway) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := cacheKey(endpoint, params)
	ttl := ttlFor(endpoint)

	if payload, fresh, ok := g.cache.Get(key, ttl); ok && fresh {
		return payload, nil
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := g.window.Acquire(ctx); err != nil {
			return nil, err
		}
		if g.smoother != nil {
			if err := g.smoother.Wait(ctx); err != nil {
				return nil, err
			}
		}

		payload, status, err := g.do(ctx, endpoint, params)

		switch {
		case err == nil && status == http.StatusOK:
			g.cache.Set(key, payload)
			return payload, nil

		case status == http.StatusTooManyRequests:
			// Provider-side throttle. Honored even though the local
			// window reported free capacity.
			lastErr = fmt.Errorf("%w: %s", ErrProviderThrottled, endpoint)
			g.logger.WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"attempt":  attempt,
				"cooldown": g.cooldown,
			}).Warn("Provider throttled request, cooling down")

			if attempt < maxAttempts {
				if err := g.clock.Sleep(ctx, g.cooldown); err != nil {
					return nil, err
				}
			}

		default:
			if err == nil {
				err = fmt.Errorf("unexpected status %d", status)
			}
			return g.fallback(key, endpoint, status, err)
		}
	}

	// Throttle retries exhausted.
	return g.fallback(key, endpoint, http.StatusTooManyRequests, lastErr)
}

// fallback serves the last known payload for key, stale included,
// before giving up on the call.
func (g *Gateway) fallback(key, endpoint string, status int, cause error) ([]byte, error) {
	if payload, _, ok := g.cache.Get(key, 0); ok {
		g.logger.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"error":    cause.Error(),
		}).Warn("Provider call failed, serving stale cache entry")
		return payload, nil
	}

	return nil, &ProviderError{Endpoint: endpoint, StatusCode: status, Err: cause}
}

// do issues one provider call and reads the body.
func (g *Gateway) do(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	u, err := url.Parse(g.baseURL + endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request URL: %w", err)
	}

	query := make(url.Values, len(params)+1)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if g.token != "" {
		query.Set("token", g.token)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	start := g.clock.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
		"duration":    g.clock.Now().Sub(start),
	}).Debug("Provider call completed")

	return payload, resp.StatusCode, nil
}

// cacheKey normalizes endpoint+params into a stable key. The auth
// token is appended at request time and never part of the key.
func cacheKey(endpoint string, params url.Values) string {
	// url.Values.Encode sorts by key.
	return endpoint + "?" + params.Encode()
}

// ttlFor picks the cache TTL for an endpoint.
func ttlFor(endpoint string) time.Duration {
	if endpoint == "/quote" {
		return quoteTTL
	}
	return staticTTL
}
