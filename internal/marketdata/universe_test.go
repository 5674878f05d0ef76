package marketdata

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTradeable(t *testing.T) {
	tests := []struct {
		name  string
		entry SymbolEntry
		want  bool
	}{
		{
			name:  "common stock on NYSE",
			entry: SymbolEntry{Symbol: "IBM", Type: "Common Stock", Mic: "XNYS"},
			want:  true,
		},
		{
			name:  "common stock on Nasdaq",
			entry: SymbolEntry{Symbol: "AAPL", Type: "Common Stock", Mic: "XNAS"},
			want:  true,
		},
		{
			name:  "ETF excluded",
			entry: SymbolEntry{Symbol: "SPY", Type: "ETP", Mic: "ARCX"},
			want:  false,
		},
		{
			name:  "ADR excluded",
			entry: SymbolEntry{Symbol: "BABA", Type: "ADR", Mic: "XNYS"},
			want:  false,
		},
		{
			name:  "off allow-list exchange excluded",
			entry: SymbolEntry{Symbol: "FOO", Type: "Common Stock", Mic: "OOTC"},
			want:  false,
		},
		{
			name:  "share-class suffix excluded",
			entry: SymbolEntry{Symbol: "BRK.B", Type: "Common Stock", Mic: "XNYS"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTradeable(tt.entry))
		})
	}
}

func TestDiscoverUniverse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/symbol", r.URL.Path)
		assert.Equal(t, "US", r.URL.Query().Get("exchange"))
		w.Write([]byte(`[
			{"symbol":"MSFT","type":"Common Stock","mic":"XNAS"},
			{"symbol":"AAPL","type":"Common Stock","mic":"XNAS"},
			{"symbol":"BRK.A","type":"Common Stock","mic":"XNYS"},
			{"symbol":"SPY","type":"ETP","mic":"ARCX"},
			{"symbol":"IBM","type":"Common Stock","mic":"XNYS"}
		]`))
	}))

	symbols, err := c.DiscoverUniverse(context.Background(), "US")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "IBM", "MSFT"}, symbols)
}
