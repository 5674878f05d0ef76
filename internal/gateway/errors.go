package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrRateExhausted means the local sliding window has no free slot.
	// It is retried inside the gateway and never escapes Fetch.
	ErrRateExhausted = errors.New("rate window exhausted")

	// ErrProviderThrottled means the provider answered HTTP 429. The
	// gateway honors it with a cooldown even when the local window
	// reports free capacity (clock skew, shared quota).
	ErrProviderThrottled = errors.New("provider throttled request")
)

// ProviderError is a terminal provider failure for a single call,
// returned only after retries are exhausted and no cached payload
// (fresh or stale) is available for the key.
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider call %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider call %s failed: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
