// Package report renders a run result as human-readable text and,
// optionally, as a JSON artifact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/contactkeval/iv-metrics/internal/pipeline"
)

// Render formats the result as the report printed to stdout.
func Render(res *pipeline.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticker: %s\n", res.Ticker)
	fmt.Fprintf(&b, "Last Price: %.2f\n", res.LastPrice)
	fmt.Fprintf(&b, "Selected Expiration: %s (target DTE ~%dd)\n",
		res.Expiration.Format("2006-01-02"), res.TargetDTE)

	if res.Call != nil {
		fmt.Fprintf(&b, "ATM Call: %s strike %.2f IV=%s\n",
			res.Call.Ticker, res.Call.Strike, formatIV(res.Call.IV))
	}
	if res.Put != nil {
		fmt.Fprintf(&b, "ATM Put:  %s strike %.2f IV=%s\n",
			res.Put.Ticker, res.Put.Strike, formatIV(res.Put.IV))
	}
	fmt.Fprintf(&b, "Current IV (ATM avg): %.4f\n", res.CurrentIV)

	if res.HistoryLen == 0 {
		b.WriteString("IV Rank: NA (no history)\n")
		b.WriteString("IV Percentile: NA (no history)\n")
	} else {
		if res.Metrics.Rank == nil {
			b.WriteString("IV Rank: NA (flat history)\n")
		} else {
			fmt.Fprintf(&b, "IV Rank: %.2f%%\n", *res.Metrics.Rank*100)
		}
		if res.Metrics.Percentile == nil {
			b.WriteString("IV Percentile: NA\n")
		} else {
			fmt.Fprintf(&b, "IV Percentile: %.2f%%\n", *res.Metrics.Percentile*100)
		}
	}

	if res.HistoryLen > 0 && res.HistoryLen < res.Lookback {
		fmt.Fprintf(&b, "Note: history has only %d entries (requested %d).\n",
			res.HistoryLen, res.Lookback)
	}
	if res.HistoryWritten {
		fmt.Fprintf(&b, "History updated at %s\n", res.HistoryPath)
	}

	return b.String()
}

func formatIV(iv *float64) string {
	if iv == nil {
		return "NA"
	}
	return strconv.FormatFloat(*iv, 'g', -1, 64)
}

// WriteJSON writes the result as an indented JSON artifact under outdir.
func WriteJSON(res *pipeline.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "iv_metrics.json"), b, 0o644)
}
