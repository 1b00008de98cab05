// Package regime gates trading on macro and microstructure safety. All five
// checks must pass before a market is handed to the signal detector.
package regime

import (
	"strings"

	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/indicators"
	"polymarket-fade-bot/internal/market"
	"polymarket-fade-bot/internal/polymarket"
)

// Check names, used in failure reasons and journal rows.
const (
	CheckVolatility  = "underlying_volatility"
	CheckTrend       = "underlying_trend"
	CheckPriceZone   = "price_zone"
	CheckSpread      = "spread"
	CheckBookBalance = "book_balance"
)

// Check is one regime test with its observed value and threshold.
type Check struct {
	Name      string
	Value     float64
	Threshold float64
	Passed    bool
	Note      string
}

// Result is the outcome of one regime evaluation. Produced fresh per market
// per cycle, never persisted.
type Result struct {
	OK            bool
	Score         float64
	Checks        []Check
	Reason        string
	SelectedToken market.OutcomeToken
	SelectedBook  *market.OrderBookSnapshot
	SelectedMid   float64
}

// Filter evaluates whether a market is currently safe to trade.
type Filter struct {
	cfg     config.RegimeConfig
	gateway polymarket.Gateway
	logger  zerolog.Logger
}

// NewFilter creates a regime filter over the given gateway.
func NewFilter(cfg config.RegimeConfig, gateway polymarket.Gateway, logger zerolog.Logger) *Filter {
	return &Filter{cfg: cfg, gateway: gateway, logger: logger}
}

// Evaluate runs the regime checks for one market. underlyingCloses is the
// underlying asset's close series, oldest-first. maxSpreadAbs overrides the
// configured spread cap when positive; the orchestrator widens it for
// markets further from expiry.
func (f *Filter) Evaluate(underlyingCloses []float64, mkt market.Market, maxSpreadAbs float64) Result {
	if maxSpreadAbs <= 0 {
		maxSpreadAbs = f.cfg.MaxSpreadAbs
	}

	token, book, ok := f.selectToken(mkt)
	if !ok {
		return Result{OK: false, Reason: "no valid orderbook"}
	}
	mid := book.Mid()

	checks := []Check{
		f.checkVolatility(underlyingCloses),
		f.checkTrend(underlyingCloses),
		f.checkPriceZone(mid),
		f.checkSpread(book, maxSpreadAbs),
		f.checkBookBalance(book),
	}

	passed := 0
	var failed []string
	for _, c := range checks {
		if c.Passed {
			passed++
		} else {
			failed = append(failed, c.Name)
		}
	}

	result := Result{
		OK:            len(failed) == 0,
		Score:         float64(passed) / float64(len(checks)),
		Checks:        checks,
		SelectedToken: token,
		SelectedBook:  book,
		SelectedMid:   mid,
	}
	if !result.OK {
		result.Reason = "failed: " + strings.Join(failed, ", ")
	}
	return result
}

// selectToken fetches both outcome tokens' books and picks the one whose mid
// is closest to 0.50, the least resolved side. Tokens without a usable book
// are excluded.
func (f *Filter) selectToken(mkt market.Market) (market.OutcomeToken, *market.OrderBookSnapshot, bool) {
	var bestToken market.OutcomeToken
	var bestBook *market.OrderBookSnapshot
	bestDist := 2.0

	var mids []float64
	for _, tok := range mkt.Tokens {
		book, err := f.gateway.GetOrderBook(tok.TokenID)
		if err != nil || !book.Valid() || book.Crossed() {
			if err != nil {
				f.logger.Debug().Err(err).Str("token_id", tok.TokenID).Msg("orderbook unavailable")
			}
			continue
		}
		mid := book.Mid()
		mids = append(mids, mid)

		dist := mid - 0.50
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			bestToken = tok
			bestBook = book
		}
	}

	if bestBook == nil {
		return market.OutcomeToken{}, nil, false
	}
	if len(mids) == 2 && !market.MidsSumSane(mids[0], mids[1]) {
		// Advisory only; a drifting complement sum usually means one
		// stale book.
		f.logger.Warn().
			Str("slug", mkt.Slug).
			Float64("mid_a", mids[0]).
			Float64("mid_b", mids[1]).
			Msg("complementary mids do not sum to ~1")
	}
	return bestToken, bestBook, true
}

func (f *Filter) checkVolatility(closes []float64) Check {
	c := Check{Name: CheckVolatility, Threshold: f.cfg.MaxUnderlyingATR}
	if len(closes) < f.cfg.ATRPeriod {
		c.Passed = true
		c.Note = "insufficient data, skipped"
		return c
	}
	c.Value = indicators.ATR(closes, f.cfg.ATRPeriod)
	c.Passed = c.Value < c.Threshold
	return c
}

func (f *Filter) checkTrend(closes []float64) Check {
	c := Check{Name: CheckTrend, Threshold: f.cfg.MaxBBWidth}
	if len(closes) < f.cfg.BBPeriod {
		c.Passed = true
		c.Note = "insufficient data, skipped"
		return c
	}
	upper, lower, middle := indicators.BollingerBands(closes, f.cfg.BBPeriod, 2.0)
	if middle <= 0 {
		c.Note = "degenerate middle band"
		return c
	}
	c.Value = (upper - lower) / middle
	c.Passed = c.Value < c.Threshold
	return c
}

func (f *Filter) checkPriceZone(mid float64) Check {
	c := Check{Name: CheckPriceZone, Value: mid, Threshold: f.cfg.MaxMid}
	c.Passed = mid > f.cfg.MinMid && mid < f.cfg.MaxMid
	if !c.Passed {
		c.Note = "near-resolved contract"
	}
	return c
}

func (f *Filter) checkSpread(book *market.OrderBookSnapshot, maxSpreadAbs float64) Check {
	c := Check{Name: CheckSpread, Threshold: maxSpreadAbs}
	c.Value = book.SpreadAbs()
	c.Passed = c.Value < maxSpreadAbs
	return c
}

func (f *Filter) checkBookBalance(book *market.OrderBookSnapshot) Check {
	c := Check{Name: CheckBookBalance, Threshold: f.cfg.MaxBookBalance}
	balance, ok := book.Imbalance()
	if !ok {
		c.Note = "zero total depth"
		return c
	}
	c.Value = balance
	c.Passed = balance >= f.cfg.MinBookBalance && balance <= f.cfg.MaxBookBalance
	return c
}
