// Command iv-metrics fetches an option chain for an equity ticker, derives
// the at-the-money implied volatility near a target DTE, and reports IV
// Rank and IV Percentile against a locally cached history.
//
// Usage:
//
//	iv-metrics -ticker AAPL
//	iv-metrics -ticker TSLA -lookback 252 -target-dte 30 -v 1
//
// History accrues one observation per run at <history-dir>/<TICKER>.csv;
// run it daily to build up a rank/percentile basis.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/contactkeval/iv-metrics/internal/data"
	"github.com/contactkeval/iv-metrics/internal/history"
	"github.com/contactkeval/iv-metrics/internal/logger"
	"github.com/contactkeval/iv-metrics/internal/pipeline"
	"github.com/contactkeval/iv-metrics/internal/report"
)

func main() {
	ticker := flag.String("ticker", "", "underlying ticker, e.g. AAPL (required)")
	apiKey := flag.String("api-key", os.Getenv("POLYGON_API_KEY"), "API key (defaults to POLYGON_API_KEY)")
	lookback := flag.Int("lookback", pipeline.DefaultLookback, "history length (observations) for rank/percentile")
	targetDTE := flag.Int("target-dte", pipeline.DefaultTargetDTE, "target days to expiration for the ATM pick")
	noWrite := flag.Bool("no-write-history", false, "do not persist today's IV to the local history cache")
	historyDir := flag.String("history-dir", pipeline.DefaultHistoryDir, "directory for per-ticker history files")
	reportDir := flag.String("report-dir", "", "also write a JSON report artifact to this directory")
	offline := flag.Bool("offline", false, "use the synthetic data provider (no network, no credential)")
	verbosity := flag.Int("v", 0, "verbosity: 0=errors, 1=info, 2=debug, 3=trace")
	flag.Parse()

	logger.SetVerbosity(*verbosity)

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "Error: -ticker is required")
		flag.Usage()
		os.Exit(2)
	}

	var prov data.Provider
	if *offline {
		logger.Infof("synthetic provider enabled")
		prov = data.NewSyntheticProvider()
	} else {
		if *apiKey == "" {
			fmt.Fprintln(os.Stderr, "Error: provide -api-key or set POLYGON_API_KEY")
			os.Exit(2)
		}
		prov = data.NewMassiveDataProvider(*apiKey)
	}

	cfg := &pipeline.Config{
		Ticker:       strings.ToUpper(*ticker),
		Lookback:     *lookback,
		TargetDTE:    *targetDTE,
		WriteHistory: !*noWrite,
	}
	store := history.NewStore(*historyDir)

	res, err := pipeline.New(cfg, prov, store).Run()
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoExpirations),
			errors.Is(err, pipeline.ErrNoSnapshots),
			errors.Is(err, pipeline.ErrNoIV):
			fmt.Fprintf(os.Stderr, "%v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Print(report.Render(res))

	if *reportDir != "" {
		if err := report.WriteJSON(res, *reportDir); err != nil {
			logger.Warnf("failed to write JSON report: %v", err)
		}
	}
}
