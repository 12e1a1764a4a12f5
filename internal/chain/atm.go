package chain

import (
	"math"
	"time"
)

// Pick is the at-the-money contract chosen for one side of the chain.
type Pick struct {
	Ticker       string    `json:"ticker"`
	Strike       float64   `json:"strike"`
	ContractType string    `json:"contract_type"`
	Expiration   time.Time `json:"expiration"`
	IV           *float64  `json:"iv,omitempty"`
}

// PickATM selects the record whose strike is closest to the underlying
// price. Records without an extractable strike are skipped. The scan keeps
// the first minimum, so with the upstream ascending-strike ordering a tie
// resolves to the lower strike.
//
// The winning record must also carry an extractable contract identifier;
// without one the selection yields nil, since an unaddressable pick cannot
// be reported or audited.
func PickATM(records []Record, contractType string, expiration time.Time, underlying float64) *Pick {
	best := -1
	bestDist := 0.0
	for i, rec := range records {
		strike, ok := rec.Strike()
		if !ok {
			continue
		}
		dist := math.Abs(strike - underlying)
		if best < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		return nil
	}

	rec := records[best]
	ticker, ok := rec.Ticker()
	if !ok {
		return nil
	}
	strike, _ := rec.Strike()
	pick := &Pick{
		Ticker:       ticker,
		Strike:       strike,
		ContractType: contractType,
		Expiration:   expiration,
	}
	if iv, ok := rec.IV(); ok {
		pick.IV = &iv
	}
	return pick
}
