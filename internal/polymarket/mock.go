package polymarket

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"polymarket-fade-bot/internal/market"
)

// MockGateway is an in-memory Gateway for tests and mock mode. Books,
// tapes, and prices are keyed by token id and can be swapped between calls.
type MockGateway struct {
	Markets      []market.Market
	Books        map[string]*market.OrderBookSnapshot
	Trades       map[string][]market.Trade
	Prices       map[string]float64
	PlacedOrders []OrderResult
	FailMarkets  bool
	FailBooks    bool
	FailTrades   bool
}

// NewMockGateway creates an empty mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Books:  make(map[string]*market.OrderBookSnapshot),
		Trades: make(map[string][]market.Trade),
		Prices: make(map[string]float64),
	}
}

func (m *MockGateway) ListActiveMarkets(lookahead time.Duration) ([]market.Market, error) {
	if m.FailMarkets {
		return nil, fmt.Errorf("mock market discovery failure")
	}
	now := time.Now()
	var out []market.Market
	for _, mkt := range m.Markets {
		if mkt.EndTime.After(now.Add(-10*time.Minute)) && mkt.EndTime.Before(now.Add(lookahead)) {
			out = append(out, mkt)
		}
	}
	return out, nil
}

func (m *MockGateway) GetOrderBook(tokenID string) (*market.OrderBookSnapshot, error) {
	if m.FailBooks {
		return nil, fmt.Errorf("mock book failure")
	}
	ob, ok := m.Books[tokenID]
	if !ok || !ob.Valid() {
		return nil, ErrNoOrderBook
	}
	return ob, nil
}

func (m *MockGateway) GetRecentTrades(tokenID string, limit int) ([]market.Trade, error) {
	if m.FailTrades {
		return nil, fmt.Errorf("mock trades failure")
	}
	trades := m.Trades[tokenID]
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return trades, nil
}

func (m *MockGateway) GetCurrentPrice(tokenID string) (float64, error) {
	if price, ok := m.Prices[tokenID]; ok {
		return price, nil
	}
	if ob, ok := m.Books[tokenID]; ok && ob.Valid() {
		return ob.Mid(), nil
	}
	return 0, fmt.Errorf("no price for token %s", tokenID)
}

func (m *MockGateway) PlaceOrder(tokenID, side string, price, size float64) (*OrderResult, error) {
	result := OrderResult{
		OrderID: uuid.New().String(),
		TokenID: tokenID,
		Side:    side,
		Price:   price,
		Size:    size,
		Status:  "STUB_FILLED",
	}
	m.PlacedOrders = append(m.PlacedOrders, result)
	return &result, nil
}

func (m *MockGateway) CancelOrder(orderID string) (bool, error) {
	return true, nil
}
