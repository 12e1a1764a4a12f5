// Package chain extracts typed option-contract fields from loosely
// structured snapshot records and selects the at-the-money contract.
//
// Snapshot payloads vary across API versions and plan tiers: the same
// logical field (strike, expiration, implied volatility) shows up under
// different keys, sometimes nested one level down. Each field is therefore
// resolved through an ordered list of candidate accessors, first usable
// value wins. A record that yields nothing for a field is reported as
// absent, never as an error and never as a zero value.
package chain

import (
	"math"
	"strconv"
	"time"
)

// Record is one decoded snapshot row as returned by the API, shape unknown.
type Record map[string]any

// accessor resolves one candidate location of a logical field.
type accessor func(Record) (any, bool)

// field builds an accessor for a (possibly nested) key path.
func field(path ...string) accessor {
	return func(r Record) (any, bool) { return Lookup(r, path...) }
}

// Candidate locations per logical field, in priority order. Direct keys
// first, then the nested variants seen in snapshot responses.
var (
	tickerFields = []accessor{
		field("ticker"),
		field("details", "ticker"),
		field("symbol"),
	}
	strikeFields = []accessor{
		field("strike_price"),
		field("strike"),
		field("details", "strike_price"),
		field("details", "strike"),
	}
	expirationFields = []accessor{
		field("expiration_date"),
		field("expires_at"),
		field("details", "expiration_date"),
	}
	ivFields = []accessor{
		field("implied_volatility"),
		field("iv"),
		field("greeks", "implied_volatility"),
		field("day", "implied_volatility"),
		field("last_quote", "implied_volatility"),
		field("details", "implied_volatility"),
	}
)

// Lookup walks nested objects along path. It reports false as soon as a
// segment is missing or the intermediate value is not an object.
func Lookup(r Record, path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// AsFloat converts a decoded JSON value to a float64. Numeric strings are
// accepted since some feeds quote numbers.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Ticker returns the option contract identifier.
func (r Record) Ticker() (string, bool) {
	for _, get := range tickerFields {
		v, ok := get(r)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Strike returns the strike price. Only finite, non-negative values are
// eligible; anything else counts as absent.
func (r Record) Strike() (float64, bool) {
	for _, get := range strikeFields {
		v, ok := get(r)
		if !ok {
			continue
		}
		f, ok := AsFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			continue
		}
		return f, true
	}
	return 0, false
}

// Expiration returns the contract expiration date. Only the first 10
// characters are parsed, which covers both plain ISO dates and
// timestamp-prefixed strings.
func (r Record) Expiration() (time.Time, bool) {
	for _, get := range expirationFields {
		v, ok := get(r)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || len(s) < 10 {
			continue
		}
		d, err := time.Parse("2006-01-02", s[:10])
		if err != nil {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}

// IV returns the implied volatility. Non-finite readings (NaN, Inf) count
// as absent so corrupt values never reach the metric computation.
func (r Record) IV() (float64, bool) {
	for _, get := range ivFields {
		v, ok := get(r)
		if !ok {
			continue
		}
		f, ok := AsFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}
