package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const bidJSON = `[1, 12345678, 946685400, 1, 100.00, 10.00, 1000.00, 1, 0, 1.1, "ApiKey#1", 0.01]`

type recorded struct {
	method, path, query, body string
}

// fakeExchange serves canned responses keyed by path and points the CLI at
// itself through BITEX_BASE_URL.
func fakeExchange(t *testing.T, routes map[string]string) *[]recorded {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(data)})
		resp, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("BITEX_BASE_URL", srv.URL)
	t.Setenv("BITEX_API_KEY", "")
	t.Setenv("BITEX_ENV", "")
	t.Setenv("BITEX_LOG_LEVEL", "error")
	return &calls
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, io.Discard)
	return out.String(), err
}

func TestRun_OrderBook(t *testing.T) {
	calls := fakeExchange(t, map[string]string{
		"/api-v1/rest/btc_usd/market/order_book": `{"bids":[[500.0,1]],"asks":[[510.0,2]]}`,
	})

	out, err := runCLI(t, "orderbook")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, `"bids"`) || !strings.Contains(out, `"510"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if len(*calls) != 1 || (*calls)[0].method != "GET" {
		t.Errorf("calls = %+v", *calls)
	}
}

func TestRun_BidCreate(t *testing.T) {
	calls := fakeExchange(t, map[string]string{
		"/api-v1/rest/private/bids": bidJSON,
	})

	out, err := runCLI(t, "-key", "k1", "bid", "create", "100", "10.5")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("calls: Got %d, Want 1", len(*calls))
	}
	got := (*calls)[0]
	if got.method != "POST" || got.body != "api_key=k1&amount=100&price=10.5" {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(out, `"kind": "bids"`) || !strings.Contains(out, `"id": 12345678`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRun_OrdersMixed(t *testing.T) {
	fakeExchange(t, map[string]string{
		"/api-v1/rest/private/orders": `[` + bidJSON + `,[2, 1, 946685400, 1, 2.0, 2.0, 900.0, 1, 0, 0, null, 0]]`,
	})

	out, err := runCLI(t, "orders")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	bids, asks := strings.Index(out, `"kind": "bids"`), strings.Index(out, `"kind": "asks"`)
	if bids < 0 || asks < 0 || bids > asks {
		t.Errorf("expected bid then ask, got: %s", out)
	}
	if !strings.Contains(out, `"issuer": null`) {
		t.Errorf("system-issued order should have null issuer: %s", out)
	}
}

func TestRun_StatusErrorHint(t *testing.T) {
	fakeExchange(t, map[string]string{})

	_, err := runCLI(t, "ask", "show", "9")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 status error, got %v", err)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	fakeExchange(t, map[string]string{})

	tests := [][]string{
		{},
		{"nope"},
		{"profile", "extra"},
		{"bid"},
		{"bid", "show"},
		{"ask", "create", "1"},
		{"ask", "explode", "1"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); !errors.Is(err, errUsage) {
			t.Errorf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestRun_InvalidOrderArgs(t *testing.T) {
	calls := fakeExchange(t, map[string]string{})

	tests := [][]string{
		{"bid", "show", "abc"},
		{"bid", "create", "abc", "10"},
		{"bid", "create", "1", "-10"},
		{"ask", "create", "0.000000001", "10"},
		{"ask", "create", "1", "10.0000001"},
	}
	for _, args := range tests {
		_, err := runCLI(t, args...)
		if err == nil || errors.Is(err, errUsage) {
			t.Errorf("args %v: expected validation error, got %v", args, err)
		}
	}
	if len(*calls) != 0 {
		t.Errorf("invalid input must not reach the exchange, calls=%d", len(*calls))
	}
}

func TestRun_WatchPrintsLastQuote(t *testing.T) {
	fakeExchange(t, map[string]string{
		"/api-v1/rest/btc_usd/market/order_book": `{"bids":[[500.0,1]],"asks":[[510.0,2]]}`,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if err := run(ctx, []string{"watch"}, &out, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), `"has_bid": true`) {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestParseAmountPrice(t *testing.T) {
	amount, price, err := parseAmountPrice("0.011", "453.71")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if amount.String() != "0.011" || price.String() != "453.71" {
		t.Errorf("got %s / %s", amount, price)
	}
}
