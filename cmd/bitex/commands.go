package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"bitex_go/internal/app"
	"bitex_go/internal/infra"
	"bitex_go/internal/market"
	"bitex_go/pkg/bitex"
	"bitex_go/pkg/quant"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errUsage means the command line was wrong; usage has been printed.
var errUsage = errors.New("usage error")

const usageText = `Usage: bitex [-config path] [-sandbox] [-key KEY] <command> [args]

Commands:
  orderbook                  public order book
  transactions               recent public trades
  profile                    account balances (private)
  orders                     open orders (private)
  bid|ask show ID            one order
  bid|ask create AMOUNT PRICE
  bid|ask cancel ID
  watch                      log top-of-book changes until interrupted

Flags:
`

// env is what a command gets to work with.
type env struct {
	cfg    *infra.Config
	client bitex.Api
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bitex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config.yaml")
	sandbox := fs.Bool("sandbox", false, "use the sandbox exchange")
	key := fs.String("key", "", "API key (prefer BITEX_API_KEY)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	var overrides []app.Override
	if *sandbox {
		overrides = append(overrides, func(cfg *infra.Config) {
			cfg.API.Bitex.Env = infra.EnvSandbox
			cfg.API.Bitex.BaseURL = ""
		})
	}
	if *key != "" {
		overrides = append(overrides, func(cfg *infra.Config) {
			cfg.API.Bitex.APIKey = *key
		})
	}

	boot := app.NewBootstrap()
	if err := boot.Initialize(*configPath, overrides...); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	e := &env{cfg: boot.Config, client: boot.Client, stdout: stdout, stderr: stderr}
	name, rest := fs.Arg(0), fs.Args()[1:]

	err := dispatch(ctx, e, name, rest)
	if errors.Is(err, errUsage) {
		fs.Usage()
	}
	return explain(err)
}

func dispatch(ctx context.Context, e *env, name string, args []string) error {
	switch name {
	case "orderbook":
		return noArgs(args, func() (any, error) { return e.client.OrderBook(ctx) }, e)
	case "transactions":
		return noArgs(args, func() (any, error) { return e.client.Transactions(ctx) }, e)
	case "profile":
		return noArgs(args, func() (any, error) { return e.client.Profile(ctx) }, e)
	case "orders":
		return noArgs(args, func() (any, error) {
			list, err := e.client.Orders(ctx)
			if err != nil {
				return nil, err
			}
			views := make([]orderView, 0, len(list))
			for _, o := range list {
				views = append(views, viewOf(o))
			}
			return views, nil
		}, e)
	case "bid":
		return orderCommand(ctx, e, bitex.BidKind, args)
	case "ask":
		return orderCommand(ctx, e, bitex.AskKind, args)
	case "watch":
		if len(args) != 0 {
			return errUsage
		}
		return watch(ctx, e)
	default:
		fmt.Fprintf(e.stderr, "unknown command %q\n", name)
		return errUsage
	}
}

func noArgs(args []string, fetch func() (any, error), e *env) error {
	if len(args) != 0 {
		return errUsage
	}
	v, err := fetch()
	if err != nil {
		return err
	}
	return e.print(v)
}

// orderView flattens an Order for output, keeping its kind.
type orderView struct {
	Kind string `json:"kind"`
	bitex.OrderDetails
}

func viewOf(o bitex.Order) orderView {
	return orderView{Kind: o.Kind().Name, OrderDetails: o.Details()}
}

func orderCommand(ctx context.Context, e *env, kind bitex.Kind, args []string) error {
	svc, ok := e.client.OrdersOf(kind)
	if !ok || len(args) == 0 {
		return errUsage
	}

	var (
		order bitex.Order
		err   error
	)
	switch args[0] {
	case "show", "cancel":
		if len(args) != 2 {
			return errUsage
		}
		id, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid order id %q: %w", args[1], perr)
		}
		if args[0] == "show" {
			order, err = svc.ShowOrder(ctx, id)
		} else {
			infra.PrintBanner(e.stderr, e.cfg)
			order, err = svc.CancelOrder(ctx, id)
		}
	case "create":
		if len(args) != 3 {
			return errUsage
		}
		amount, price, perr := parseAmountPrice(args[1], args[2])
		if perr != nil {
			return perr
		}
		infra.PrintBanner(e.stderr, e.cfg)
		slog.Info("Placing order",
			slog.String("kind", kind.Name),
			slog.String("amount", amount.String()),
			slog.String("price", price.String()),
		)
		order, err = svc.CreateOrder(ctx, amount, price)
	default:
		return errUsage
	}

	if err != nil {
		return err
	}
	return e.print(viewOf(order))
}

// parseAmountPrice accepts positive decimals with at most 8 places for the
// amount and 6 for the price.
func parseAmountPrice(amountArg, priceArg string) (amount, price decimal.Decimal, err error) {
	amount, err = decimal.NewFromString(amountArg)
	if err != nil {
		return amount, price, fmt.Errorf("invalid amount %q: %w", amountArg, err)
	}
	price, err = decimal.NewFromString(priceArg)
	if err != nil {
		return amount, price, fmt.Errorf("invalid price %q: %w", priceArg, err)
	}
	if !amount.IsPositive() || !price.IsPositive() {
		return amount, price, fmt.Errorf("amount and price must be positive")
	}
	if _, err := quant.ExactQtySats(amount); err != nil {
		return amount, price, fmt.Errorf("invalid amount: %w", err)
	}
	if _, err := quant.ExactPriceMicros(price); err != nil {
		return amount, price, fmt.Errorf("invalid price: %w", err)
	}
	return amount, price, nil
}

func watch(ctx context.Context, e *env) error {
	infra.PrintBanner(e.stderr, e.cfg)

	w := market.NewWatcherWithConfig(e.client, e.cfg, func(q market.Quote) {
		attrs := []any{slog.Time("at", q.At)}
		if q.HasBid {
			attrs = append(attrs, slog.String("bid", q.Bid.Price.String()), slog.String("bid_volume", q.Bid.Volume.String()))
		}
		if q.HasAsk {
			attrs = append(attrs, slog.String("ask", q.Ask.Price.String()), slog.String("ask_volume", q.Ask.Volume.String()))
		}
		if spread, ok := q.Spread(); ok {
			attrs = append(attrs, slog.String("spread", spread.String()))
		}
		slog.Info("Top of book", attrs...)
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-ctx.Done()
	if q, ok := w.Latest(); ok {
		return e.print(q)
	}
	return nil
}

func (e *env) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(e.stdout, string(data))
	return err
}

// explain adds a hint to the errors users hit most.
func explain(err error) error {
	var status *bitex.StatusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w (check BITEX_API_KEY or -key)", err)
		}
	}
	if errors.Is(err, infra.ErrCircuitOpen) {
		return fmt.Errorf("%w (too many server errors, retry later)", err)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
