// Package pipeline sequences one iv-metrics run: price lookup, expiration
// selection, snapshot fetch, ATM selection, metric computation, history
// update. Any step failure is fatal for the run; only the history write is
// downgraded to a warning.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/contactkeval/iv-metrics/internal/chain"
	"github.com/contactkeval/iv-metrics/internal/data"
	"github.com/contactkeval/iv-metrics/internal/history"
	"github.com/contactkeval/iv-metrics/internal/logger"
	"github.com/contactkeval/iv-metrics/internal/metrics"
)

const (
	DefaultLookback   = 252 // trading days in roughly one year
	DefaultTargetDTE  = 30
	DefaultHistoryDir = ".iv_cache"
)

// Distinct fatal run-failure conditions. These are expected upstream-data
// states, not defects; the fix is to retry the run later.
var (
	ErrNoExpirations = errors.New("no option expirations found in the target window")
	ErrNoSnapshots   = errors.New("no snapshot data returned for selected expiration")
	ErrNoIV          = errors.New("unable to extract implied volatility from snapshots")
)

// Config struct
type Config struct {
	Ticker       string `json:"ticker"`                  // e.g. "AAPL"
	Lookback     int    `json:"lookback,omitempty"`      // history window for rank/percentile, default 252
	TargetDTE    int    `json:"target_dte,omitempty"`    // target days to expiration, default 30
	WriteHistory bool   `json:"write_history,omitempty"` // persist today's IV after computing metrics
}

// Pipeline wires a provider and a history store to one config.
type Pipeline struct {
	cfg   *Config
	prov  data.Provider
	store *history.Store
}

// Result is the complete outcome of one run.
type Result struct {
	Ticker         string          `json:"ticker"`
	LastPrice      float64         `json:"last_price"`
	Expiration     time.Time       `json:"expiration"`
	TargetDTE      int             `json:"target_dte"`
	Call           *chain.Pick     `json:"call,omitempty"`
	Put            *chain.Pick     `json:"put,omitempty"`
	CurrentIV      float64         `json:"current_iv"`
	Metrics        metrics.Metrics `json:"metrics"`
	HistoryLen     int             `json:"history_len"`
	Lookback       int             `json:"lookback"`
	HistoryPath    string          `json:"history_path"`
	HistoryWritten bool            `json:"history_written"`
}

func New(cfg *Config, prov data.Provider, store *history.Store) *Pipeline {
	return &Pipeline{cfg: cfg, prov: prov, store: store}
}

// Run executes the fixed sequence for one ticker.
func (p *Pipeline) Run() (*Result, error) {
	cfg := p.cfg
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.TargetDTE == 0 {
		cfg.TargetDTE = DefaultTargetDTE
	}
	ticker := strings.ToUpper(cfg.Ticker)

	today := tradingDate(time.Now())

	logger.Infof("fetching last price for %s", ticker)
	price, err := p.prov.LastPrice(ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch last price: %w", err)
	}

	// Expirations are searched in a window around the target DTE; the
	// near edge is floored at a week out to avoid expiring contracts.
	target := today.AddDate(0, 0, cfg.TargetDTE)
	nearOffset := cfg.TargetDTE - 30
	if nearOffset < 7 {
		nearOffset = 7
	}
	windowStart := today.AddDate(0, 0, nearOffset)
	windowEnd := today.AddDate(0, 0, cfg.TargetDTE+60)

	logger.Infof(
		"listing expirations between %s and %s",
		windowStart.Format("2006-01-02"),
		windowEnd.Format("2006-01-02"),
	)
	expirations, err := p.prov.Expirations(ticker, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list expirations: %w", err)
	}
	if len(expirations) == 0 {
		return nil, ErrNoExpirations
	}
	expiration := nearestExpiration(expirations, target)

	logger.Infof(
		"fetching snapshots for %s %s calls/puts",
		ticker,
		expiration.Format("2006-01-02"),
	)
	calls, err := p.prov.Snapshot(ticker, expiration, data.TypeCall)
	if err != nil {
		return nil, fmt.Errorf("fetch call snapshot: %w", err)
	}
	puts, err := p.prov.Snapshot(ticker, expiration, data.TypePut)
	if err != nil {
		return nil, fmt.Errorf("fetch put snapshot: %w", err)
	}
	if len(calls) == 0 && len(puts) == 0 {
		return nil, ErrNoSnapshots
	}

	callPick := chain.PickATM(calls, data.TypeCall, expiration, price)
	putPick := chain.PickATM(puts, data.TypePut, expiration, price)

	var ivs []float64
	if callPick != nil && callPick.IV != nil {
		ivs = append(ivs, *callPick.IV)
	}
	if putPick != nil && putPick.IV != nil {
		ivs = append(ivs, *putPick.IV)
	}
	if len(ivs) == 0 {
		return nil, ErrNoIV
	}
	currentIV := stat.Mean(ivs, nil)
	logger.Debugf("current ATM IV %.4f from %d side(s)", currentIV, len(ivs))

	// Metrics always run against the history as it stood before this run;
	// today's observation is appended afterwards.
	observations, err := p.store.Load(ticker, cfg.Lookback)
	if err != nil {
		logger.Warnf("failed to load history: %v", err)
		observations = nil
	}
	values := make([]float64, len(observations))
	for i, o := range observations {
		values[i] = o.IV
	}

	res := &Result{
		Ticker:      ticker,
		LastPrice:   price,
		Expiration:  expiration,
		TargetDTE:   cfg.TargetDTE,
		Call:        callPick,
		Put:         putPick,
		CurrentIV:   currentIV,
		Metrics:     metrics.Compute(values, currentIV),
		HistoryLen:  len(observations),
		Lookback:    cfg.Lookback,
		HistoryPath: p.store.Path(ticker),
	}

	if cfg.WriteHistory {
		if err := p.store.Append(ticker, today, currentIV); err != nil {
			logger.Warnf("failed to write history: %v", err)
		} else {
			res.HistoryWritten = true
		}
	}

	return res, nil
}

// tradingDate reduces now to the calendar date of the US equity session,
// falling back to the naive local date when tzdata is unavailable.
func tradingDate(now time.Time) time.Time {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		now = now.In(loc)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nearestExpiration picks the expiration with minimal absolute day
// distance to target. The slice is scanned ascending and the first minimum
// is kept, so ties resolve to the earlier expiration.
func nearestExpiration(expirations []time.Time, target time.Time) time.Time {
	sorted := append([]time.Time(nil), expirations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best := sorted[0]
	bestDist := absDays(sorted[0], target)
	for _, e := range sorted[1:] {
		if d := absDays(e, target); d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

func absDays(a, b time.Time) int {
	return int(math.Abs(a.Sub(b).Hours() / 24))
}
