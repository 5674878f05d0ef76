package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheFreshness(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(clock)

	c.Set("/quote?symbol=AAPL", []byte(`{"c":231.5}`))

	payload, fresh, ok := c.Get("/quote?symbol=AAPL", time.Minute)
	assert.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, []byte(`{"c":231.5}`), payload)

	// An expired entry is retained, just no longer fresh.
	clock.advance(2 * time.Minute)

	payload, fresh, ok = c.Get("/quote?symbol=AAPL", time.Minute)
	assert.True(t, ok, "stale entries must be retained for fallback")
	assert.False(t, fresh)
	assert.Equal(t, []byte(`{"c":231.5}`), payload)
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(newFakeClock())

	_, fresh, ok := c.Get("/quote?symbol=MSFT", time.Minute)
	assert.False(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, 0, c.Len())
}

func TestCacheOverwriteRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(clock)

	c.Set("k", []byte("v1"))
	clock.advance(2 * time.Minute)
	c.Set("k", []byte("v2"))

	payload, fresh, ok := c.Get("k", time.Minute)
	assert.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, []byte("v2"), payload)
	assert.Equal(t, 1, c.Len())
}
