// Package position defines the open-position record shared by the risk
// manager, exit manager, state store, and orchestrator.
package position

import "time"

// Position is one live holding. Created on successful execution, owned by
// the orchestrator's open set, and moved to trade history on exit. At most
// one open position exists per token id.
type Position struct {
	ID            string    `json:"id"`
	TokenID       string    `json:"token_id"`
	MarketSlug    string    `json:"market_slug"`
	Question      string    `json:"question"`
	Outcome       string    `json:"outcome"`
	Side          string    `json:"side"` // BUY or SELL
	EntryPrice    float64   `json:"entry_price"`
	EntryTime     time.Time `json:"entry_time"`
	Size          float64   `json:"size"` // dollars
	SignalScore   float64   `json:"signal_score"`
	ExpectedEdge  float64   `json:"expected_edge"`
	FadeDirection string    `json:"fade_direction"`
	MarketEndTime time.Time `json:"market_end_time"`
}

// PnlPct returns the signed fractional PnL at the given price. BUY positions
// gain as price rises, SELL positions as it falls. The strategy only ever
// holds BUY, but the formula supports both.
func (p *Position) PnlPct(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Side == "SELL" {
		return (p.EntryPrice - currentPrice) / p.EntryPrice
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice
}

// PnlDollars returns the dollar PnL at the given price.
func (p *Position) PnlDollars(currentPrice float64) float64 {
	return p.PnlPct(currentPrice) * p.Size
}
