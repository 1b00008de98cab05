package polymarket

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testMarketJSON(slug, question string, end time.Time) string {
	return fmt.Sprintf(`{
		"slug": %q,
		"question": %q,
		"endDate": %q,
		"clobTokenIds": "[\"tok-up\",\"tok-down\"]",
		"outcomes": "[\"Up\",\"Down\"]"
	}`, slug, question, end.Format(time.RFC3339))
}

func TestListActiveMarketsStrictFilter(t *testing.T) {
	end := time.Now().Add(10 * time.Minute)
	payload := "[" +
		testMarketJSON("btc-updown-15m-1767645900", "Bitcoin Up or Down - 15 min", end) + "," +
		testMarketJSON("btc-15m-other", "Bitcoin 15 min range", end) + "," +
		testMarketJSON("eth-updown-15m-1767645900", "Ethereum Up or Down - 15 min", end) +
		"]"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	markets, err := c.ListActiveMarkets(45 * time.Minute)
	if err != nil {
		t.Fatalf("ListActiveMarkets failed: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("Strict filter should match only the btc up-or-down market, got %d", len(markets))
	}
	if markets[0].Slug != "btc-updown-15m-1767645900" {
		t.Errorf("Wrong market selected: %s", markets[0].Slug)
	}
	if markets[0].Tokens[0].Label != "Up" || markets[0].Tokens[1].Label != "Down" {
		t.Error("Outcome labels should be parsed from the listing")
	}
}

func TestListActiveMarketsRelaxedFallback(t *testing.T) {
	end := time.Now().Add(10 * time.Minute)
	// No up-or-down marker anywhere, so the strict filter is empty.
	payload := "[" + testMarketJSON("btc-15m-range", "Bitcoin 15 min range", end) + "]"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	markets, err := c.ListActiveMarkets(45 * time.Minute)
	if err != nil {
		t.Fatalf("ListActiveMarkets failed: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("Relaxed fallback should match the asset+cadence market, got %d", len(markets))
	}
}

func TestListActiveMarketsExcludesExpired(t *testing.T) {
	payload := "[" +
		testMarketJSON("btc-updown-15m-old", "Bitcoin Up or Down - 15 min", time.Now().Add(-30*time.Minute)) + "," +
		testMarketJSON("btc-updown-15m-far", "Bitcoin Up or Down - 15 min", time.Now().Add(5*time.Hour)) +
		"]"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	markets, err := c.ListActiveMarkets(45 * time.Minute)
	if err != nil {
		t.Fatalf("ListActiveMarkets failed: %v", err)
	}
	if len(markets) != 0 {
		t.Errorf("Markets outside the end-time window should be excluded, got %d", len(markets))
	}
}

func TestGetOrderBookParsesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bids":[{"price":"0.44","size":"100"},{"price":"0.45","size":"50"}],"asks":[{"price":"0.47","size":"80"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	ob, err := c.GetOrderBook("tok")
	if err != nil {
		t.Fatalf("GetOrderBook failed: %v", err)
	}
	if ob.BestBid() != 0.45 {
		t.Errorf("Bids should be re-sorted, best bid = %v", ob.BestBid())
	}
	if ob.BestAsk() != 0.47 {
		t.Errorf("Best ask = %v", ob.BestAsk())
	}
}

func TestGetOrderBookEmptyFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bids":[],"asks":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	if _, err := c.GetOrderBook("tok"); err != ErrNoOrderBook {
		t.Errorf("Empty book should return ErrNoOrderBook, got %v", err)
	}
}

func TestGetRecentTrades(t *testing.T) {
	ts := time.Now().Add(-2 * time.Minute).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"price":0.52,"size":20,"side":"buy","outcome":"Up","timestamp":%d}]`, ts)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, srv.URL, "btc", zerolog.Nop())

	trades, err := c.GetRecentTrades("tok", 100)
	if err != nil {
		t.Fatalf("GetRecentTrades failed: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("Expected one trade, got %d", len(trades))
	}
	if trades[0].Side != "BUY" {
		t.Errorf("Side should be upper-cased, got %q", trades[0].Side)
	}
	if trades[0].Price != 0.52 {
		t.Errorf("Price = %v", trades[0].Price)
	}
}

func TestPlaceOrderNeverTransmits(t *testing.T) {
	// No server at all: the stub must succeed without any network call.
	c := NewClient("http://127.0.0.1:0", "http://127.0.0.1:0", "http://127.0.0.1:0", "btc", zerolog.Nop())

	result, err := c.PlaceOrder("tok", "BUY", 0.45, 20)
	if err != nil {
		t.Fatalf("Order stub should not fail: %v", err)
	}
	if result.Status != "STUB_FILLED" {
		t.Errorf("Stub status = %q", result.Status)
	}
	if result.OrderID == "" {
		t.Error("Stub should assign an order id")
	}
}
