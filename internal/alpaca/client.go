// Package alpaca fetches underlying-asset (BTC/ETH) price bars from the
// Alpaca crypto data API. Only closes are consumed downstream.
package alpaca

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BarSource supplies underlying closes, oldest-first, and a recent change
// figure for the detector's mismatch check.
type BarSource interface {
	GetCloses(timeframe string, limit int) ([]float64, error)
	GetRecentChange(minutes int) (float64, error)
}

// Client is the Alpaca crypto bars client.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	symbol     string
	httpClient *http.Client
}

// NewClient creates a bars client for one symbol (e.g. "BTC/USD").
func NewClient(apiKey, apiSecret, baseURL, symbol string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		symbol:     symbol,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type rawBar struct {
	Close float64 `json:"c"`
}

type barsResponse struct {
	Bars map[string][]rawBar `json:"bars"`
}

// GetCloses fetches the last limit bars for the configured symbol and
// returns their closes oldest-first.
func (c *Client) GetCloses(timeframe string, limit int) ([]float64, error) {
	params := url.Values{}
	params.Set("symbols", c.symbol)
	params.Set("timeframe", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/v1beta3/crypto/us/bars?%s", c.baseURL, params.Encode())

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("APCA-API-KEY-ID", c.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching bars: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed barsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing bars: %w", err)
	}

	bars := parsed.Bars[c.symbol]
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		closes = append(closes, b.Close)
	}
	return closes, nil
}

// GetRecentChange returns the fractional price change of the underlying over
// the last minutes worth of 1-minute bars.
func (c *Client) GetRecentChange(minutes int) (float64, error) {
	closes, err := c.GetCloses("1Min", minutes+1)
	if err != nil {
		return 0, err
	}
	if len(closes) < 2 || closes[0] == 0 {
		return 0, fmt.Errorf("insufficient bar data")
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0], nil
}

// MockBarSource serves canned closes for tests and mock mode.
type MockBarSource struct {
	Closes []float64
	Change float64
	Err    error
}

func (m *MockBarSource) GetCloses(timeframe string, limit int) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && len(m.Closes) > limit {
		return m.Closes[len(m.Closes)-limit:], nil
	}
	return m.Closes, nil
}

func (m *MockBarSource) GetRecentChange(minutes int) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Change, nil
}
