package data

import (
	"time"

	"github.com/contactkeval/iv-metrics/internal/chain"
)

// Contract sides as the snapshot API spells them.
const (
	TypeCall = "call"
	TypePut  = "put"
)

// Provider supplies market data. All calls are blocking, single-attempt
// lookups; the only fallback behavior lives inside LastPrice, which may
// consult an alternate endpoint when the primary yields no usable price.
type Provider interface {
	// LastPrice returns the most recent trade price for an equity ticker.
	LastPrice(ticker string) (float64, error)

	// Expirations lists the distinct option expiration dates for the
	// underlying with expirations inside [from, to], ascending.
	Expirations(underlying string, from, to time.Time) ([]time.Time, error)

	// Snapshot fetches the option-chain snapshot rows for one expiration
	// and contract side, ordered by ascending strike. Row shape is left
	// loose; field recovery is the chain package's job.
	Snapshot(underlying string, expiration time.Time, contractType string) ([]chain.Record, error)
}
