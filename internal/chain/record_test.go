package chain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrikeCandidateOrder(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want float64
		ok   bool
	}{
		{"direct strike_price", Record{"strike_price": 95.0}, 95, true},
		{"direct strike alias", Record{"strike": 100.0}, 100, true},
		{"nested details", Record{"details": map[string]any{"strike_price": 105.0}}, 105, true},
		{"nested alias", Record{"details": map[string]any{"strike": 110.0}}, 110, true},
		{"direct wins over nested", Record{"strike_price": 95.0, "details": map[string]any{"strike_price": 200.0}}, 95, true},
		{"numeric string", Record{"strike_price": "97.5"}, 97.5, true},
		{"non-numeric falls through", Record{"strike_price": "n/a", "strike": 90.0}, 90, true},
		{"negative rejected", Record{"strike_price": -5.0}, 0, false},
		{"missing", Record{"foo": "bar"}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.rec.Strike()
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestExpirationAcceptsTimestampPrefix(t *testing.T) {
	rec := Record{"expiration_date": "2025-10-17T00:00:00Z"}
	d, ok := rec.Expiration()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), d)

	rec = Record{"expires_at": "2025-10-17"}
	d, ok = rec.Expiration()
	require.True(t, ok)
	assert.Equal(t, "2025-10-17", d.Format("2006-01-02"))

	rec = Record{"expiration_date": "10/17/2025"}
	_, ok = rec.Expiration()
	assert.False(t, ok)

	rec = Record{"expiration_date": 20251017.0}
	_, ok = rec.Expiration()
	assert.False(t, ok)
}

func TestIVNestedNonstandardKey(t *testing.T) {
	// IV present only under a nested location still resolves as long as
	// that location is in the candidate list.
	rec := Record{"last_quote": map[string]any{"implied_volatility": 0.31}}
	iv, ok := rec.IV()
	require.True(t, ok)
	assert.InDelta(t, 0.31, iv, 1e-12)

	rec = Record{"greeks": map[string]any{"implied_volatility": 0.42}, "day": map[string]any{"implied_volatility": 0.99}}
	iv, ok = rec.IV()
	require.True(t, ok)
	assert.InDelta(t, 0.42, iv, 1e-12, "greeks location outranks day")
}

func TestIVRejectsNonFinite(t *testing.T) {
	for _, v := range []any{math.NaN(), math.Inf(1), math.Inf(-1), "NaN", "Inf"} {
		rec := Record{"implied_volatility": v}
		_, ok := rec.IV()
		assert.False(t, ok, "value %v must be absent, not zero", v)
	}
}

func TestTickerCandidates(t *testing.T) {
	rec := Record{"details": map[string]any{"ticker": "O:AAPL251017C00230000"}}
	s, ok := rec.Ticker()
	require.True(t, ok)
	assert.Equal(t, "O:AAPL251017C00230000", s)

	_, ok = Record{"ticker": ""}.Ticker()
	assert.False(t, ok, "empty identifier is absent")
}

func TestExtractionFromDecodedJSON(t *testing.T) {
	// A realistic snapshot row, decoded the way the provider decodes it.
	payload := `{
		"details": {"ticker": "O:TSLA251017P00250000", "strike_price": 250, "expiration_date": "2025-10-17", "contract_type": "put"},
		"greeks": {"delta": -0.48, "implied_volatility": 0.5517},
		"day": {"close": 12.4}
	}`
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	ticker, ok := rec.Ticker()
	require.True(t, ok)
	assert.Equal(t, "O:TSLA251017P00250000", ticker)

	strike, ok := rec.Strike()
	require.True(t, ok)
	assert.Equal(t, 250.0, strike)

	iv, ok := rec.IV()
	require.True(t, ok)
	assert.InDelta(t, 0.5517, iv, 1e-12)
}

func TestLookupStopsAtNonObject(t *testing.T) {
	rec := Record{"details": "not-an-object"}
	_, ok := Lookup(rec, "details", "strike_price")
	assert.False(t, ok)
}
