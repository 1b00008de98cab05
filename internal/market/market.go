// Package market defines the normalized market-data shapes consumed by the
// trading pipeline: binary markets, order book snapshots, and trade tapes.
package market

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Trade side labels as reported by the data API.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// PriceLevel is a single order book level.
type PriceLevel struct {
	Price float64
	Size  float64
}

// Trade is one print from the public trade tape.
type Trade struct {
	Timestamp time.Time
	Price     float64
	Size      float64
	Side      string
	Outcome   string
}

// Notional returns the dollar value of the trade.
func (t Trade) Notional() float64 {
	return t.Price * t.Size
}

// OutcomeToken is one side of a binary market.
type OutcomeToken struct {
	TokenID string
	Label   string
}

// Market is a 15-minute binary up/down market.
type Market struct {
	Slug     string
	Question string
	EndTime  time.Time
	Tokens   [2]OutcomeToken
}

// MinutesToExpiry returns the remaining lifetime of the market in minutes.
// Negative once the market has settled.
func (m Market) MinutesToExpiry(now time.Time) float64 {
	return m.EndTime.Sub(now).Minutes()
}

// ComplementLabel returns the other element of the market's two-label set.
// Unknown labels return the first token's label as a safe fallback.
func (m Market) ComplementLabel(label string) string {
	if strings.EqualFold(label, m.Tokens[0].Label) {
		return m.Tokens[1].Label
	}
	if strings.EqualFold(label, m.Tokens[1].Label) {
		return m.Tokens[0].Label
	}
	return m.Tokens[0].Label
}

// TokenForLabel returns the token id carrying the given outcome label.
func (m Market) TokenForLabel(label string) (string, bool) {
	for _, tok := range m.Tokens {
		if strings.EqualFold(tok.Label, label) {
			return tok.TokenID, true
		}
	}
	return "", false
}

// EndTimeFromSlug recovers the settlement time from slugs of the form
// "btc-updown-15m-1767645900" where the final segment is a unix timestamp.
func EndTimeFromSlug(slug string) (time.Time, bool) {
	parts := strings.Split(slug, "-")
	if len(parts) == 0 {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil || unix < 1_000_000_000 || unix > 10_000_000_000 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0).UTC(), true
}

// NormalizePrice maps venue prices reported in cents into the [0, 1]
// probability scale. Values in (1, 100] are divided by 100, everything else
// passes through untouched.
func NormalizePrice(p float64) float64 {
	if p > 1 && p <= 100 {
		return p / 100
	}
	return p
}

// DepthLevels is the number of top-of-book levels summed into depth figures.
const DepthLevels = 5

// OrderBookSnapshot is a normalized view of one token's book, fetched fresh
// per evaluation and never cached across cycles.
type OrderBookSnapshot struct {
	Bids []PriceLevel // sorted descending by price
	Asks []PriceLevel // sorted ascending by price
}

// NewOrderBookSnapshot normalizes raw levels into a snapshot. Venues may
// return unsorted arrays and cent-scaled prices, so levels are re-sorted and
// prices normalized here.
func NewOrderBookSnapshot(bids, asks []PriceLevel) *OrderBookSnapshot {
	ob := &OrderBookSnapshot{
		Bids: make([]PriceLevel, len(bids)),
		Asks: make([]PriceLevel, len(asks)),
	}
	for i, l := range bids {
		ob.Bids[i] = PriceLevel{Price: NormalizePrice(l.Price), Size: l.Size}
	}
	for i, l := range asks {
		ob.Asks[i] = PriceLevel{Price: NormalizePrice(l.Price), Size: l.Size}
	}

	sort.Slice(ob.Bids, func(i, j int) bool { return ob.Bids[i].Price > ob.Bids[j].Price })
	sort.Slice(ob.Asks, func(i, j int) bool { return ob.Asks[i].Price < ob.Asks[j].Price })

	return ob
}

// Valid reports whether both sides of the book have at least one level.
// Mid and spread are undefined on an invalid book and callers must fail
// closed.
func (ob *OrderBookSnapshot) Valid() bool {
	return ob != nil && len(ob.Bids) > 0 && len(ob.Asks) > 0
}

// BestBid returns the highest bid price.
func (ob *OrderBookSnapshot) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask price.
func (ob *OrderBookSnapshot) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Crossed reports a stale or invalid book where the best bid sits above the
// best ask.
func (ob *OrderBookSnapshot) Crossed() bool {
	return ob.Valid() && ob.BestBid() > ob.BestAsk()
}

// Mid returns the midpoint of the best bid and ask.
func (ob *OrderBookSnapshot) Mid() float64 {
	if !ob.Valid() {
		return 0
	}
	return (ob.BestBid() + ob.BestAsk()) / 2
}

// SpreadAbs returns best ask minus best bid.
func (ob *OrderBookSnapshot) SpreadAbs() float64 {
	if !ob.Valid() {
		return math.Inf(1)
	}
	return ob.BestAsk() - ob.BestBid()
}

// SpreadRel returns the absolute spread as a fraction of the mid.
func (ob *OrderBookSnapshot) SpreadRel() float64 {
	mid := ob.Mid()
	if mid == 0 {
		return math.Inf(1)
	}
	return ob.SpreadAbs() / mid
}

// BidDepth sums the sizes of the top DepthLevels bid levels.
func (ob *OrderBookSnapshot) BidDepth() float64 {
	return sumDepth(ob.Bids)
}

// AskDepth sums the sizes of the top DepthLevels ask levels.
func (ob *OrderBookSnapshot) AskDepth() float64 {
	return sumDepth(ob.Asks)
}

// TotalDepthDollars approximates the dollar depth near the touch, used by
// the position sizer's depth cap.
func (ob *OrderBookSnapshot) TotalDepthDollars() float64 {
	total := 0.0
	for i, l := range ob.Bids {
		if i >= DepthLevels {
			break
		}
		total += l.Price * l.Size
	}
	for i, l := range ob.Asks {
		if i >= DepthLevels {
			break
		}
		total += l.Price * l.Size
	}
	return total
}

// Imbalance returns bid depth as a fraction of total depth. The second
// return is false when the book has zero depth.
func (ob *OrderBookSnapshot) Imbalance() (float64, bool) {
	bid := ob.BidDepth()
	ask := ob.AskDepth()
	if bid+ask == 0 {
		return 0, false
	}
	return bid / (bid + ask), true
}

func sumDepth(levels []PriceLevel) float64 {
	sum := 0.0
	for i, l := range levels {
		if i >= DepthLevels {
			break
		}
		sum += l.Size
	}
	return sum
}

// SortTradesByTime returns a copy of the tape ordered oldest-first. The data
// API does not guarantee ordering, so time-windowed statistics must sort
// explicitly instead of trusting arrival order.
func SortTradesByTime(trades []Trade) []Trade {
	sorted := make([]Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// TradesInWindow returns the trades with timestamps in [from, to], sorted
// oldest-first.
func TradesInWindow(trades []Trade, from, to time.Time) []Trade {
	var out []Trade
	for _, tr := range SortTradesByTime(trades) {
		if tr.Timestamp.Before(from) || tr.Timestamp.After(to) {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// MidsSumSane checks the loose invariant that two complementary tokens' mids
// sum to about 1. Advisory only, never a hard gate.
func MidsSumSane(midA, midB float64) bool {
	return math.Abs((midA+midB)-1.0) <= 0.05
}
