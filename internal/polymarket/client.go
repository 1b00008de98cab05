// Package polymarket implements the market-data gateway for Polymarket's
// public Gamma, CLOB, and Data APIs, plus stubbed order placement.
package polymarket

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polymarket-fade-bot/internal/market"
)

// ErrNoOrderBook is returned when a token has no usable order book.
var ErrNoOrderBook = errors.New("no valid orderbook")

// OrderResult is the response from the stubbed order path.
type OrderResult struct {
	OrderID string
	TokenID string
	Side    string
	Price   float64
	Size    float64
	Status  string
}

// Gateway is the market-data and order interface consumed by the bot.
// Order placement is a stub in every implementation; no request signing or
// real execution exists in this system.
type Gateway interface {
	ListActiveMarkets(lookahead time.Duration) ([]market.Market, error)
	GetOrderBook(tokenID string) (*market.OrderBookSnapshot, error)
	GetRecentTrades(tokenID string, limit int) ([]market.Trade, error)
	GetCurrentPrice(tokenID string) (float64, error)
	PlaceOrder(tokenID, side string, price, size float64) (*OrderResult, error)
	CancelOrder(orderID string) (bool, error)
}

// Client talks to the public Polymarket APIs.
type Client struct {
	gammaBaseURL string
	clobBaseURL  string
	dataBaseURL  string
	assetTag     string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a gateway for the given API endpoints. assetTag selects
// which underlying the market filters match ("btc" or "eth").
func NewClient(gammaBaseURL, clobBaseURL, dataBaseURL, assetTag string, logger zerolog.Logger) *Client {
	return &Client{
		gammaBaseURL: gammaBaseURL,
		clobBaseURL:  clobBaseURL,
		dataBaseURL:  dataBaseURL,
		assetTag:     strings.ToLower(assetTag),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// gammaMarket is the raw listing shape. Token ids and outcome labels arrive
// as JSON-encoded string arrays inside string fields.
type gammaMarket struct {
	Slug         string `json:"slug"`
	Question     string `json:"question"`
	EndDate      string `json:"endDate"`
	ClobTokenIDs string `json:"clobTokenIds"`
	Outcomes     string `json:"outcomes"`
}

// ListActiveMarkets discovers 15-minute binary markets settling within the
// lookahead window. The strict filter requires an up-or-down marker; when it
// matches nothing the asset+cadence relaxed filter is used as fallback.
func (c *Client) ListActiveMarkets(lookahead time.Duration) ([]market.Market, error) {
	params := url.Values{}
	params.Set("closed", "false")
	params.Set("limit", "200")
	params.Set("order", "endDate")
	params.Set("ascending", "true")

	endpoint := fmt.Sprintf("%s/markets?%s", c.gammaBaseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error listing markets: %w", err)
	}

	var raw []gammaMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error parsing markets: %w", err)
	}

	now := time.Now()
	windowStart := now.Add(-10 * time.Minute)
	windowEnd := now.Add(lookahead)

	var strict, relaxed []market.Market
	for _, gm := range raw {
		m, ok := c.toMarket(gm)
		if !ok {
			continue
		}
		if m.EndTime.Before(windowStart) || m.EndTime.After(windowEnd) {
			continue
		}
		if !matchesAsset(gm, c.assetTag) || !looks15m(gm) {
			continue
		}
		relaxed = append(relaxed, m)
		if isUpDown(gm) {
			strict = append(strict, m)
		}
	}

	if len(strict) > 0 {
		return strict, nil
	}
	if len(relaxed) > 0 {
		c.logger.Debug().Int("count", len(relaxed)).Msg("strict market filter empty, using relaxed match")
	}
	return relaxed, nil
}

func (c *Client) toMarket(gm gammaMarket) (market.Market, bool) {
	var tokenIDs, outcomes []string
	if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokenIDs); err != nil || len(tokenIDs) != 2 {
		return market.Market{}, false
	}
	if err := json.Unmarshal([]byte(gm.Outcomes), &outcomes); err != nil || len(outcomes) != 2 {
		return market.Market{}, false
	}

	end, err := time.Parse(time.RFC3339, gm.EndDate)
	if err != nil {
		// Some listings omit a parseable end date; the slug carries a
		// unix suffix for 15-minute markets.
		var ok bool
		end, ok = market.EndTimeFromSlug(gm.Slug)
		if !ok {
			return market.Market{}, false
		}
	}

	return market.Market{
		Slug:     gm.Slug,
		Question: gm.Question,
		EndTime:  end,
		Tokens: [2]market.OutcomeToken{
			{TokenID: tokenIDs[0], Label: outcomes[0]},
			{TokenID: tokenIDs[1], Label: outcomes[1]},
		},
	}, true
}

func matchesAsset(gm gammaMarket, tag string) bool {
	text := strings.ToLower(gm.Slug + " " + gm.Question)
	if tag == "btc" {
		return strings.Contains(text, "btc") || strings.Contains(text, "bitcoin")
	}
	if tag == "eth" {
		return strings.Contains(text, "eth") || strings.Contains(text, "ethereum")
	}
	return strings.Contains(text, tag)
}

func looks15m(gm gammaMarket) bool {
	text := strings.ToLower(gm.Slug + " " + gm.Question)
	return strings.Contains(text, "15m") || strings.Contains(text, "15-m") ||
		strings.Contains(text, "15 min")
}

func isUpDown(gm gammaMarket) bool {
	text := strings.ToLower(gm.Slug + " " + gm.Question)
	return strings.Contains(text, "updown") || strings.Contains(text, "up or down") ||
		strings.Contains(text, "up-or-down")
}

type rawBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type rawBook struct {
	Bids []rawBookLevel `json:"bids"`
	Asks []rawBookLevel `json:"asks"`
}

// GetOrderBook fetches one token's book from the CLOB API. A missing or
// empty book returns ErrNoOrderBook so callers can fail closed.
func (c *Client) GetOrderBook(tokenID string) (*market.OrderBookSnapshot, error) {
	endpoint := fmt.Sprintf("%s/book?token_id=%s", c.clobBaseURL, url.QueryEscape(tokenID))

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching orderbook: %w", err)
	}

	var raw rawBook
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error parsing orderbook: %w", err)
	}

	ob := market.NewOrderBookSnapshot(parseLevels(raw.Bids), parseLevels(raw.Asks))
	if !ob.Valid() {
		return nil, ErrNoOrderBook
	}
	return ob, nil
}

func parseLevels(raw []rawBookLevel) []market.PriceLevel {
	levels := make([]market.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, err1 := strconv.ParseFloat(l.Price, 64)
		size, err2 := strconv.ParseFloat(l.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, market.PriceLevel{Price: price, Size: size})
	}
	return levels
}

type rawTrade struct {
	Price     json.Number `json:"price"`
	Size      json.Number `json:"size"`
	Side      string      `json:"side"`
	Outcome   string      `json:"outcome"`
	Timestamp int64       `json:"timestamp"`
}

// GetRecentTrades fetches the public trade tape for a token. Order is not
// guaranteed; callers sort by timestamp.
func (c *Client) GetRecentTrades(tokenID string, limit int) ([]market.Trade, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/trades?%s", c.dataBaseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching trades: %w", err)
	}

	var raw []rawTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error parsing trades: %w", err)
	}

	trades := make([]market.Trade, 0, len(raw))
	for _, rt := range raw {
		price, err1 := rt.Price.Float64()
		size, err2 := rt.Size.Float64()
		if err1 != nil || err2 != nil {
			continue
		}
		trades = append(trades, market.Trade{
			Timestamp: time.Unix(rt.Timestamp, 0),
			Price:     market.NormalizePrice(price),
			Size:      size,
			Side:      strings.ToUpper(rt.Side),
			Outcome:   rt.Outcome,
		})
	}
	return trades, nil
}

type rawMidpoint struct {
	Mid json.Number `json:"mid"`
}

// GetCurrentPrice returns the CLOB midpoint for a token.
func (c *Client) GetCurrentPrice(tokenID string) (float64, error) {
	endpoint := fmt.Sprintf("%s/midpoint?token_id=%s", c.clobBaseURL, url.QueryEscape(tokenID))

	body, err := c.get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("error fetching midpoint: %w", err)
	}

	var raw rawMidpoint
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("error parsing midpoint: %w", err)
	}

	mid, err := raw.Mid.Float64()
	if err != nil {
		return 0, fmt.Errorf("error parsing midpoint value: %w", err)
	}
	return market.NormalizePrice(mid), nil
}

// PlaceOrder is a stub. It never signs or transmits an order; it returns a
// synthetic fill so the rest of the pipeline can be exercised end to end.
func (c *Client) PlaceOrder(tokenID, side string, price, size float64) (*OrderResult, error) {
	result := &OrderResult{
		OrderID: uuid.New().String(),
		TokenID: tokenID,
		Side:    side,
		Price:   price,
		Size:    size,
		Status:  "STUB_FILLED",
	}
	c.logger.Info().
		Str("order_id", result.OrderID).
		Str("token_id", tokenID).
		Str("side", side).
		Float64("price", price).
		Float64("size", size).
		Msg("order stub (not transmitted)")
	return result, nil
}

// CancelOrder is a stub matching PlaceOrder.
func (c *Client) CancelOrder(orderID string) (bool, error) {
	c.logger.Info().Str("order_id", orderID).Msg("cancel stub (not transmitted)")
	return true, nil
}

func (c *Client) get(endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
