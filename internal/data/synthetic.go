package data

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contactkeval/iv-metrics/internal/chain"
)

// synthDataProvider implements Provider with a deterministic, generated
// option chain. It backs offline runs and tests; the rows it emits use the
// same nested shape as real snapshot responses so extraction is exercised
// end to end.
type synthDataProvider struct {
	// Spot is the generated last trade price.
	Spot float64

	// BaseIV is the implied volatility at the money; the smile adds a
	// small premium per strike step away from spot.
	BaseIV float64
}

// NewSyntheticProvider returns a synthetic provider with fixed defaults.
func NewSyntheticProvider() *synthDataProvider {
	return &synthDataProvider{Spot: 187.33, BaseIV: 0.2800}
}

func (synthDataProv *synthDataProvider) LastPrice(ticker string) (float64, error) {
	if ticker == "" {
		return 0, fmt.Errorf("no ticker given")
	}
	return synthDataProv.Spot, nil
}

// Expirations emits the Fridays inside [from, to], the usual weekly listing
// cadence for liquid equity options.
func (synthDataProv *synthDataProvider) Expirations(underlying string, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		if cur.Weekday() == time.Friday {
			out = append(out, cur)
		}
	}
	return out, nil
}

// Snapshot generates an ascending-strike chain bracketing the spot in $5
// steps with a symmetric volatility smile.
func (synthDataProv *synthDataProvider) Snapshot(underlying string, expiration time.Time, contractType string) ([]chain.Record, error) {
	const step = 5.0
	atm := math.Round(synthDataProv.Spot/step) * step

	var out []chain.Record
	for offset := -4; offset <= 4; offset++ {
		strike := atm + float64(offset)*step
		if strike <= 0 {
			continue
		}
		iv := synthDataProv.BaseIV + 0.004*math.Abs(float64(offset))
		out = append(out, chain.Record{
			"details": map[string]any{
				"ticker":          syntheticSymbol(underlying, expiration, contractType, strike),
				"strike_price":    strike,
				"expiration_date": expiration.Format("2006-01-02"),
				"contract_type":   contractType,
			},
			"greeks": map[string]any{
				"implied_volatility": iv,
			},
		})
	}
	return out, nil
}

// syntheticSymbol formats an OCC-style option symbol:
// O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>
func syntheticSymbol(underlying string, expiration time.Time, contractType string, strike float64) string {
	side := "C"
	if strings.EqualFold(contractType, TypePut) {
		side = "P"
	}
	return fmt.Sprintf(
		"O:%s%s%s%08d",
		strings.ToUpper(underlying),
		expiration.Format("060102"),
		side,
		int(math.Round(strike*1000)),
	)
}
