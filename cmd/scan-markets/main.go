// One-shot market discovery: lists the 15-minute markets the bot would
// consider right now, with their expiry bucket, spread, and mid.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"polymarket-fade-bot/config"
	"polymarket-fade-bot/internal/polymarket"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	client := polymarket.NewClient(
		cfg.PolymarketConfig.GammaBaseURL,
		cfg.PolymarketConfig.ClobBaseURL,
		cfg.PolymarketConfig.DataBaseURL,
		cfg.PolymarketConfig.AssetTag,
		zerolog.Nop(),
	)

	lookahead := time.Duration(cfg.TradingConfig.LookaheadMinutes) * time.Minute
	markets, err := client.ListActiveMarkets(lookahead)
	if err != nil {
		fmt.Printf("❌ Market discovery failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("📊 ACTIVE %s 15-MINUTE MARKETS (next %d min)\n",
		strings.ToUpper(cfg.PolymarketConfig.AssetTag), cfg.TradingConfig.LookaheadMinutes)
	fmt.Println(strings.Repeat("=", 80))

	if len(markets) == 0 {
		fmt.Println("No markets found")
		return
	}

	now := time.Now()
	sort.Slice(markets, func(i, j int) bool { return markets[i].EndTime.Before(markets[j].EndTime) })

	eligible := 0
	for _, mkt := range markets {
		minutes := mkt.MinutesToExpiry(now)

		status := "✅"
		if minutes < cfg.TradingConfig.MinMinutesToExpiry || minutes > cfg.TradingConfig.MaxMinutesToExpiry {
			status = "⏭️"
		} else {
			eligible++
		}

		fmt.Printf("\n%s %s\n", status, mkt.Slug)
		fmt.Printf("   Expires in %.1f min (%s bucket)\n", minutes, bucketName(cfg.TradingConfig, minutes))

		for _, tok := range mkt.Tokens {
			book, err := client.GetOrderBook(tok.TokenID)
			if err != nil {
				fmt.Printf("   %-5s no orderbook\n", tok.Label+":")
				continue
			}
			fmt.Printf("   %-5s mid %.3f | spread %.3f | depth $%.0f\n",
				tok.Label+":", book.Mid(), book.SpreadAbs(), book.TotalDepthDollars())
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%d of %d markets in the tradeable expiry window\n", eligible, len(markets))
}

func bucketName(tc config.TradingConfig, minutes float64) string {
	switch {
	case minutes <= tc.CurrentBucketMaxMin:
		return "CURRENT"
	case minutes <= tc.NextBucketMaxMin:
		return "NEXT"
	default:
		return "FUTURE"
	}
}
