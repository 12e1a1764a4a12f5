package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/iv-metrics/internal/chain"
	"github.com/contactkeval/iv-metrics/internal/metrics"
	"github.com/contactkeval/iv-metrics/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	callIV := 0.2815
	rank := 0.4
	pct := 1.0 / 3.0
	return &pipeline.Result{
		Ticker:     "AAPL",
		LastPrice:  231.55,
		Expiration: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
		TargetDTE:  30,
		Call: &chain.Pick{
			Ticker: "O:AAPL251017C00230000", Strike: 230,
			ContractType: "call", IV: &callIV,
		},
		Put: &chain.Pick{
			Ticker: "O:AAPL251017P00230000", Strike: 230,
			ContractType: "put",
		},
		CurrentIV:      0.2815,
		Metrics:        metrics.Metrics{Rank: &rank, Percentile: &pct},
		HistoryLen:     3,
		Lookback:       252,
		HistoryPath:    ".iv_cache/AAPL.csv",
		HistoryWritten: true,
	}
}

func TestRenderFullReport(t *testing.T) {
	out := Render(sampleResult())
	for _, line := range []string{
		"Ticker: AAPL",
		"Last Price: 231.55",
		"Selected Expiration: 2025-10-17 (target DTE ~30d)",
		"ATM Call: O:AAPL251017C00230000 strike 230.00 IV=0.2815",
		"ATM Put:  O:AAPL251017P00230000 strike 230.00 IV=NA",
		"Current IV (ATM avg): 0.2815",
		"IV Rank: 40.00%",
		"IV Percentile: 33.33%",
		"Note: history has only 3 entries (requested 252).",
		"History updated at .iv_cache/AAPL.csv",
	} {
		assert.Contains(t, out, line)
	}
}

func TestRenderNoHistory(t *testing.T) {
	res := sampleResult()
	res.HistoryLen = 0
	res.Metrics = metrics.Metrics{}

	out := Render(res)
	assert.Contains(t, out, "IV Rank: NA (no history)")
	assert.Contains(t, out, "IV Percentile: NA (no history)")
	assert.NotContains(t, out, "Note: history has only")
}

func TestRenderFlatHistory(t *testing.T) {
	res := sampleResult()
	pct := 1.0
	res.Metrics = metrics.Metrics{Percentile: &pct}

	out := Render(res)
	assert.Contains(t, out, "IV Rank: NA (flat history)")
	assert.Contains(t, out, "IV Percentile: 100.00%")
}

func TestRenderSuppressedHistoryWrite(t *testing.T) {
	res := sampleResult()
	res.HistoryWritten = false
	assert.NotContains(t, Render(res), "History updated at")
}

func TestWriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, WriteJSON(sampleResult(), dir))

	raw, err := os.ReadFile(filepath.Join(dir, "iv_metrics.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "AAPL", decoded["ticker"])
	assert.True(t, strings.Contains(string(raw), "\"iv_rank\""))
}
