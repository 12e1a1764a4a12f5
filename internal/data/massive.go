// Package data provides market data provider implementations.
//
// This file contains a Massive-backed Provider implementation that retrieves
// last trade prices, option expirations, and option-chain snapshots via
// Massive (Polygon-compatible) HTTP APIs.
//
// Design notes:
//   - Uses raw HTTP calls instead of the official Massive SDK
//   - Every fetch is single-attempt; the only fallback is the documented
//     v3 -> v2 last-trade chain
//   - Snapshot rows are decoded loosely and handed to the chain package,
//     since their shape varies across API versions and plan tiers
package data

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/contactkeval/iv-metrics/internal/chain"
	"github.com/contactkeval/iv-metrics/internal/logger"
)

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint for Massive APIs
	// (e.g., https://api.massive.com).
	BaseURL string
}

// contractsPage models one page of the option contracts reference API.
// Results stay loosely typed so expiration recovery can tolerate the
// expiration_date / expires_at variants.
type contractsPage struct {
	Results   []chain.Record `json:"results"`
	Status    string         `json:"status"`
	RequestID string         `json:"request_id"`
	NextURL   string         `json:"next_url"`
}

// snapshotPage models the option-chain snapshot response.
type snapshotPage struct {
	Results []chain.Record `json:"results"`
	Status  string         `json:"status"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider with a
// pooled HTTP client and a fixed per-request timeout.
func NewMassiveDataProvider(apiKey string) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	return &massiveDataProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				DisableCompression:    false, // must be false to enable gzip auto-decompression
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL: "https://api.massive.com",
	}
}

// LastPrice returns the most recent trade price for ticker.
//
// The v3 endpoint is tried first; any failure there (lower plan tiers
// reject it outright) falls through to the v2 endpoint. The price is
// probed at results.price then results.p, matching the two response
// generations.
func (massiveDataProv *massiveDataProvider) LastPrice(ticker string) (float64, error) {
	if body, err := massiveDataProv.get("/v3/last_trade/stocks/"+ticker, nil); err == nil {
		if price, ok := lastTradePrice(body); ok {
			return price, nil
		}
		logger.Debugf("primary last trade response had no usable price for %s", ticker)
	} else {
		logger.Debugf("primary last trade lookup failed: %v", err)
	}

	body, err := massiveDataProv.get("/v2/last/trade/"+ticker, nil)
	if err != nil {
		return 0, fmt.Errorf("last trade %s: %w", ticker, err)
	}
	if price, ok := lastTradePrice(body); ok {
		return price, nil
	}
	return 0, fmt.Errorf("unable to fetch last price for %s", ticker)
}

// lastTradePrice probes a last-trade payload for a positive price.
func lastTradePrice(body []byte) (float64, bool) {
	var payload chain.Record
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, false
	}
	for _, path := range [][]string{{"results", "price"}, {"results", "p"}} {
		v, ok := chain.Lookup(payload, path...)
		if !ok {
			continue
		}
		if f, ok := chain.AsFloat(v); ok && f > 0 {
			return f, true
		}
	}
	return 0, false
}

// Expirations lists the distinct option expiration dates for underlying
// inside [from, to], ascending. Calls and puts share expirations, so only
// calls are queried. The contracts reference API paginates via next_url.
func (massiveDataProv *massiveDataProvider) Expirations(underlying string, from, to time.Time) ([]time.Time, error) {
	logger.Debugf(
		"listing expirations for %s [%s -> %s]",
		underlying,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)

	params := url.Values{}
	params.Set("underlying_ticker", underlying)
	params.Set("contract_type", TypeCall)
	params.Set("expiration_date.gte", from.Format("2006-01-02"))
	params.Set("expiration_date.lte", to.Format("2006-01-02"))
	params.Set("sort", "expiration_date")
	params.Set("order", "asc")
	params.Set("limit", "1000")

	reqURL, err := massiveDataProv.buildURL("/v3/reference/options/contracts", params)
	if err != nil {
		return nil, err
	}

	seen := map[string]time.Time{}
	for reqURL != "" {
		body, err := massiveDataProv.getURL(reqURL)
		if err != nil {
			return nil, fmt.Errorf("list contracts: %w", err)
		}

		var page contractsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode contracts: %w", err)
		}
		logger.Tracef("received %d contracts", len(page.Results))

		for _, rec := range page.Results {
			d, ok := rec.Expiration()
			if !ok {
				continue // skip malformed expiry dates
			}
			seen[d.Format("2006-01-02")] = d
		}

		reqURL = page.NextURL
	}

	expirations := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		expirations = append(expirations, d)
	}
	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })

	logger.Debugf("resolved %d unique expirations", len(expirations))
	return expirations, nil
}

// Snapshot fetches the chain snapshot rows for one expiration and side,
// ascending by strike. Rows come back as loose records; strike, IV and
// identifier recovery happen downstream.
func (massiveDataProv *massiveDataProvider) Snapshot(underlying string, expiration time.Time, contractType string) ([]chain.Record, error) {
	logger.Debugf(
		"fetching %s snapshot for %s exp=%s",
		contractType,
		underlying,
		expiration.Format("2006-01-02"),
	)

	params := url.Values{}
	params.Set("expiration_date", expiration.Format("2006-01-02"))
	params.Set("contract_type", contractType)
	params.Set("order", "asc")
	params.Set("sort", "strike")
	params.Set("limit", "250")

	body, err := massiveDataProv.get("/v3/snapshot/options/"+underlying, params)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s: %w", underlying, contractType, err)
	}

	var page snapshotPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	logger.Tracef("received %d %s rows", len(page.Results), contractType)
	return page.Results, nil
}

// buildURL composes an absolute request URL with the API key appended.
func (massiveDataProv *massiveDataProvider) buildURL(path string, params url.Values) (string, error) {
	u, err := url.Parse(massiveDataProv.BaseURL + path)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			query.Set(k, v)
		}
	}
	query.Set("apiKey", massiveDataProv.APIKey)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// get issues one GET against path and returns the response body.
func (massiveDataProv *massiveDataProvider) get(path string, params url.Values) ([]byte, error) {
	reqURL, err := massiveDataProv.buildURL(path, params)
	if err != nil {
		return nil, err
	}
	return massiveDataProv.getURL(reqURL)
}

// getURL issues one GET against an absolute URL. Pagination follows
// next_url values that already carry their own query, so auth also rides
// in the Authorization header.
func (massiveDataProv *massiveDataProvider) getURL(reqURL string) ([]byte, error) {
	logger.Tracef("GET %s", reqURL)

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+massiveDataProv.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "iv-metrics/1.0")

	resp, err := massiveDataProv.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var dbg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &dbg)
		msg := dbg.Message
		if msg == "" {
			msg = dbg.Error
		}
		logger.Errorf("massive API error status=%d message=%s", resp.StatusCode, msg)
		return nil, fmt.Errorf("massive returned status %d: %s", resp.StatusCode, msg)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return body, nil
}
