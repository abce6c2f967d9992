package bitex

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// MockRoundTripper allows us to mock HTTP responses
type MockRoundTripper struct {
	Func func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Func(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// stubServer answers a single expected request and records what it got.
type stubServer struct {
	*httptest.Server
	method   string
	path     string
	rawQuery string
	body     string
}

func newStubServer(t *testing.T, status int, response string) *stubServer {
	t.Helper()
	s := &stubServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		s.method = r.Method
		s.path = r.URL.Path
		s.rawQuery = r.URL.RawQuery
		s.body = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) expect(t *testing.T, method, path, rawQuery, body string) {
	t.Helper()
	if s.method != method {
		t.Errorf("Unexpected method: %s, want %s", s.method, method)
	}
	if s.path != path {
		t.Errorf("Unexpected path: %s, want %s", s.path, path)
	}
	if s.rawQuery != rawQuery {
		t.Errorf("Unexpected query: %q, want %q", s.rawQuery, rawQuery)
	}
	if s.body != body {
		t.Errorf("Unexpected body: %q, want %q", s.body, body)
	}
}

func TestApi_OrderBook(t *testing.T) {
	srv := newStubServer(t, 200, `{"bids":[[500.0,1],[490.0,2]], "asks":[[510.0,1],[520.0,2]]}`)

	book, err := New(srv.URL).OrderBook(context.Background())
	if err != nil {
		t.Fatalf("OrderBook failed: %v", err)
	}
	srv.expect(t, "GET", "/api-v1/rest/btc_usd/market/order_book", "", "")

	if !book.Bids[0].Equal(PriceLevel{Price: dec("500"), Volume: dec("1")}) {
		t.Errorf("bids[0] = %+v", book.Bids[0])
	}
	if !book.Asks[1].Equal(PriceLevel{Price: dec("520"), Volume: dec("2")}) {
		t.Errorf("asks[1] = %+v", book.Asks[1])
	}
}

func TestApi_Transactions(t *testing.T) {
	srv := newStubServer(t, 200, `[[1461469200, 60644, 453.71391, 0.01119999],[1461469100, 60643, 453.71, 0.011]]`)

	txs, err := New(srv.URL).Transactions(context.Background())
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	srv.expect(t, "GET", "/api-v1/rest/btc_usd/market/transactions", "", "")

	if len(txs) != 2 || !txs[1].Amount.Equal(dec("0.011")) {
		t.Errorf("unexpected transactions: %+v", txs)
	}
}

func TestApi_Profile(t *testing.T) {
	srv := newStubServer(t, 200, `{"usd_balance": 10000.00, "usd_reserved": 2000.00, "usd_available": 8000.00,
		"btc_balance": 20.0, "btc_reserved": 5.0, "btc_available": 15.0, "fee": 0.5,
		"btc_deposit_address": "1ABCD", "more_mt_deposit_code": "BITEX0000000"}`)

	profile, err := New(srv.URL).WithKey("bogus").Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	srv.expect(t, "GET", "/api-v1/rest/private/profile", "api_key=bogus", "")

	if !profile.USDAvailable.Equal(dec("8000")) || profile.BTCDepositAddress != "1ABCD" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestApi_Orders(t *testing.T) {
	srv := newStubServer(t, 200, "["+bidJSON+","+askJSON+"]")

	orders, err := New(srv.URL).WithKey("bogus").Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	srv.expect(t, "GET", "/api-v1/rest/private/orders", "api_key=bogus", "")

	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if b, ok := orders[0].(Bid); !ok || !b.Equal(expectedBid()) {
		t.Errorf("orders[0] = %#v", orders[0])
	}
	if a, ok := orders[1].(Ask); !ok || !a.Equal(expectedAsk()) {
		t.Errorf("orders[1] = %#v", orders[1])
	}
}

func TestBids_Create(t *testing.T) {
	srv := newStubServer(t, 200, bidJSON)

	bid, err := New(srv.URL).WithKey("bogus").Bids().Create(context.Background(), dec("100.0"), dec("10.0"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	srv.expect(t, "POST", "/api-v1/rest/private/bids", "", "api_key=bogus&amount=100&price=10")

	if !bid.Equal(expectedBid()) {
		t.Errorf("Bid mismatch: %+v", bid)
	}
}

func TestAsks_CreateUsesAsksPath(t *testing.T) {
	srv := newStubServer(t, 200, `[2, 12345678, 946685400, 1, 100.00, 10.00, 1000.00, 1, 0, 1.1, "ApiKey#1", 0.01]`)

	ask, err := New(srv.URL).WithKey("bogus").Asks().Create(context.Background(), dec("100"), dec("10"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	srv.expect(t, "POST", "/api-v1/rest/private/asks", "", "api_key=bogus&amount=100&price=10")

	if ask.ID != 12345678 || !ask.Price.Equal(dec("1000")) {
		t.Errorf("Ask mismatch: %+v", ask)
	}
}

func TestOrderResource_ShowAndCancel(t *testing.T) {
	tests := []struct {
		name     string
		response string
		call     func(Api) error
		method   string
		path     string
		query    string
		body     string
	}{
		{
			name:     "Show Bid",
			response: bidJSON,
			call: func(a Api) error {
				_, err := a.Bids().Show(context.Background(), 1)
				return err
			},
			method: "GET", path: "/api-v1/rest/private/bids/1", query: "api_key=bogus",
		},
		{
			name:     "Cancel Bid",
			response: bidJSON,
			call: func(a Api) error {
				_, err := a.Bids().Cancel(context.Background(), 1)
				return err
			},
			method: "POST", path: "/api-v1/rest/private/bids/1/cancel", body: "api_key=bogus",
		},
		{
			name:     "Show Ask",
			response: askJSON,
			call: func(a Api) error {
				_, err := a.Asks().Show(context.Background(), 1)
				return err
			},
			method: "GET", path: "/api-v1/rest/private/asks/1", query: "api_key=bogus",
		},
		{
			name:     "Cancel Ask",
			response: askJSON,
			call: func(a Api) error {
				_, err := a.Asks().Cancel(context.Background(), 1)
				return err
			},
			method: "POST", path: "/api-v1/rest/private/asks/1/cancel", body: "api_key=bogus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, 200, tt.response)
			if err := tt.call(New(srv.URL).WithKey("bogus")); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			srv.expect(t, tt.method, tt.path, tt.query, tt.body)
		})
	}
}

func TestAsks_ShowRejectsBidResponse(t *testing.T) {
	srv := newStubServer(t, 200, bidJSON)

	_, err := New(srv.URL).WithKey("bogus").Asks().Show(context.Background(), 1)
	if !IsDecode(err) {
		t.Errorf("expected decode error for bid payload on asks endpoint, got %v", err)
	}
}

func TestApi_EmptyKeyStillSent(t *testing.T) {
	srv := newStubServer(t, 200, "[]")

	if _, err := New(srv.URL).Orders(context.Background()); err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	srv.expect(t, "GET", "/api-v1/rest/private/orders", "api_key=", "")
}

func TestApi_StatusError(t *testing.T) {
	srv := newStubServer(t, 401, `{"error":"invalid api key"}`)

	_, err := New(srv.URL).WithKey("bogus").Profile(context.Background())
	if err == nil {
		t.Fatal("expected error on 401")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != 401 || se.Method != "GET" {
		t.Errorf("unexpected status error: %+v", se)
	}
	if !IsStatus(err, 401) {
		t.Error("IsStatus(err, 401) should be true")
	}
}

func TestApi_MalformedBody(t *testing.T) {
	srv := newStubServer(t, 200, `{"bids": [[500.0]]`)

	_, err := New(srv.URL).OrderBook(context.Background())
	if !IsDecode(err) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestApi_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	client := &http.Client{Transport: &MockRoundTripper{
		Func: func(req *http.Request) (*http.Response, error) {
			return nil, boom
		},
	}}

	_, err := Prod().WithHTTPClient(client).OrderBook(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected transport error to unwrap to original, got %v", err)
	}
	if IsDecode(err) {
		t.Error("transport error must not be reported as decode error")
	}
}

func TestApi_TransportErrorHidesKey(t *testing.T) {
	client := &http.Client{Transport: &MockRoundTripper{
		Func: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}}

	_, err := Prod().WithKey("s3cret").WithHTTPClient(client).Profile(context.Background())
	if err == nil || strings.Contains(err.Error(), "s3cret") {
		t.Errorf("error must not leak the api key: %v", err)
	}
}

func TestApi_MockTransportRequestShape(t *testing.T) {
	client := &http.Client{Transport: &MockRoundTripper{
		Func: func(req *http.Request) (*http.Response, error) {
			if req.URL.String() != "https://sandbox.bitex.la/api-v1/rest/private/bids" {
				t.Errorf("Unexpected URL: %s", req.URL)
			}
			if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("Unexpected Content-Type: %s", ct)
			}
			return jsonResponse(200, bidJSON), nil
		},
	}}

	api := Sandbox().WithKey("k").WithHTTPClient(client)
	if _, err := api.Bids().Create(context.Background(), dec("0.5"), dec("420.25")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestApi_ImmutableBuilder(t *testing.T) {
	base := New("http://example.test")
	keyed := base.WithKey("secret")

	if base.Key() != "" {
		t.Errorf("WithKey mutated the original handle: %q", base.Key())
	}
	if keyed.Key() != "secret" || keyed.BaseURL() != "http://example.test" {
		t.Errorf("unexpected keyed handle: %+v", keyed)
	}
}

func TestPresets(t *testing.T) {
	if Prod().BaseURL() != ProductionURL {
		t.Errorf("Prod() = %s", Prod().BaseURL())
	}
	if Sandbox().BaseURL() != SandboxURL {
		t.Errorf("Sandbox() = %s", Sandbox().BaseURL())
	}
	if ProductionURL == SandboxURL {
		t.Error("sandbox must not point at production")
	}
}

func TestParams_EncodeKeepsOrder(t *testing.T) {
	p := Params{{"z", "1"}, {"a", "x y"}, {"m", "&"}}
	if got := p.Encode(); got != "z=1&a=x+y&m=%26" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestOrderResource_Kind(t *testing.T) {
	api := New("http://example.test")
	if api.Bids().Kind() != BidKind || api.Asks().Kind() != AskKind {
		t.Error("resource kinds mismatch")
	}
}

func TestApi_OrdersOf(t *testing.T) {
	srv := newStubServer(t, 200, askJSON)
	api := New(srv.URL).WithKey("bogus")

	svc, ok := api.OrdersOf(AskKind)
	if !ok {
		t.Fatal("asks resource not found")
	}
	order, err := svc.CancelOrder(context.Background(), 7)
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	srv.expect(t, "POST", "/api-v1/rest/private/asks/7/cancel", "", "api_key=bogus")

	if _, isAsk := order.(Ask); !isAsk {
		t.Errorf("expected Ask, got %T", order)
	}

	if _, ok := api.OrdersOf(Kind{Name: "swaps", Discriminator: 3}); ok {
		t.Error("unknown kind must not resolve")
	}
}

func TestApi_RejectsEmptyRecords(t *testing.T) {
	fullProfile := `"usd_balance": 1, "usd_reserved": 0, "usd_available": 1,
		"btc_balance": 1, "btc_reserved": 0, "btc_available": 1, "fee": 0.5,
		"btc_deposit_address": "1ABCD"`

	tests := []struct {
		name string
		body string
		call func(Api) error
	}{
		{"Profile Null", `null`, func(a Api) error { _, err := a.Profile(context.Background()); return err }},
		{"Profile Empty Object", `{}`, func(a Api) error { _, err := a.Profile(context.Background()); return err }},
		{"Profile Null Balance", `{"usd_balance": null}`, func(a Api) error { _, err := a.Profile(context.Background()); return err }},
		{"Profile Missing Code", `{` + fullProfile + `}`, func(a Api) error { _, err := a.Profile(context.Background()); return err }},
		{"Profile Null Code", `{` + fullProfile + `, "more_mt_deposit_code": null}`, func(a Api) error { _, err := a.Profile(context.Background()); return err }},
		{"OrderBook Null", `null`, func(a Api) error { _, err := a.OrderBook(context.Background()); return err }},
		{"OrderBook Empty Object", `{}`, func(a Api) error { _, err := a.OrderBook(context.Background()); return err }},
		{"OrderBook Null Side", `{"bids": [[500.0, 1]], "asks": null}`, func(a Api) error { _, err := a.OrderBook(context.Background()); return err }},
		{"OrderBook Bad Level", `{"bids": [[500.0]], "asks": []}`, func(a Api) error { _, err := a.OrderBook(context.Background()); return err }},
		{"Transactions Null", `null`, func(a Api) error { _, err := a.Transactions(context.Background()); return err }},
		{"Orders Empty Body", ``, func(a Api) error { _, err := a.Orders(context.Background()); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, 200, tt.body)
			err := tt.call(New(srv.URL).WithKey("bogus"))
			if !IsDecode(err) {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	}
}

func TestApi_SystemIssuedOrder(t *testing.T) {
	srv := newStubServer(t, 200, `[1,1,2,3,"1.5",2,3,4,5,6,null,7]`)

	bid, err := New(srv.URL).WithKey("bogus").Bids().Show(context.Background(), 1)
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if bid.Issuer != nil {
		t.Errorf("expected nil issuer, got %q", *bid.Issuer)
	}
	if !bid.AmountToSpend.Equal(dec("1.5")) || !bid.FeesPaid.Equal(dec("7")) {
		t.Errorf("unexpected bid: %+v", bid)
	}
}
