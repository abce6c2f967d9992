package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"bitex_go/internal/app"

	"github.com/shopspring/decimal"
)

// Places a bid far below the market on the configured exchange and cancels it.
// Needs BITEX_API_KEY. Refuses production unless CONFIRM_REAL_MONEY=true.
func main() {
	slog.Info("🚀 Starting Bitex Integration Test...")

	boot := app.NewBootstrap()
	if err := boot.Initialize(""); err != nil {
		slog.Error("❌ Bootstrapping failed", "error", err)
		os.Exit(1)
	}
	cfg, client := boot.Config, boot.Client

	if client.Key() == "" {
		slog.Error("❌ BITEX_API_KEY is required")
		os.Exit(1)
	}
	if cfg.IsProduction() && os.Getenv("CONFIRM_REAL_MONEY") != "true" {
		slog.Error("❌ Refusing to place orders on production without CONFIRM_REAL_MONEY=true")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 1. Public + private reads
	book, err := client.OrderBook(ctx)
	if err != nil {
		slog.Error("❌ OrderBook Failed", "error", err)
		os.Exit(1)
	}
	best, ok := book.BestBid()
	if !ok {
		slog.Error("❌ Order book has no bids, cannot pick a safe price")
		os.Exit(1)
	}
	if _, err := client.Profile(ctx); err != nil {
		slog.Error("❌ Profile Failed", "error", err)
		os.Exit(1)
	}

	// 2. Place Limit Bid at 10% of the best bid, spending 1 USD
	price := best.Price.Mul(decimal.RequireFromString("0.1")).Round(2)
	amount := decimal.NewFromInt(1)

	slog.Info("STEP 1: Placing Bid...", "price", price.String(), "amount", amount.String())
	bid, err := client.Bids().Create(ctx, amount, price)
	if err != nil {
		slog.Error("❌ Create Bid Failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Bid Placed Successfully", "id", bid.ID)

	time.Sleep(2 * time.Second)

	// 3. Show + Cancel
	if _, err := client.Bids().Show(ctx, bid.ID); err != nil {
		slog.Error("❌ Show Bid Failed", "error", err)
		os.Exit(1)
	}

	slog.Info("STEP 2: Canceling Bid...", "id", bid.ID)
	canceled, err := client.Bids().Cancel(ctx, bid.ID)
	if err != nil {
		slog.Error("❌ Cancel Bid Failed", "error", err, "id", bid.ID)
		os.Exit(1)
	}
	slog.Info("✅ Bid Canceled", "status", canceled.Status)
	slog.Info("🎉 Integration Test Passed!")
}
