package bitex

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Base URLs for the Bitex REST API. Any other base URL is accepted too,
// which is how tests point the client at a local server.
const (
	ProductionURL = "https://bitex.la"
	SandboxURL    = "https://sandbox.bitex.la"

	apiPrefix = "/api-v1/rest/"
)

// Param is a single request parameter. Params keep insertion order on the
// wire so api_key is always sent first.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of request parameters.
type Params []Param

// Encode renders the params as application/x-www-form-urlencoded without
// reordering them.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// Api is an immutable client handle. Copies are cheap and safe to share
// between goroutines; the With* methods return modified copies.
type Api struct {
	key        string
	baseURL    string
	httpClient *http.Client
}

// New creates an unauthenticated client pointing to baseURL.
func New(baseURL string) Api {
	return Api{baseURL: baseURL}
}

// Prod is a shortcut for a production client.
func Prod() Api { return New(ProductionURL) }

// Sandbox is a shortcut for a sandbox client.
func Sandbox() Api { return New(SandboxURL) }

// WithKey returns a copy of the client that authenticates with key.
func (a Api) WithKey(key string) Api {
	a.key = key
	return a
}

// WithHTTPClient returns a copy of the client that sends requests through c.
// A nil c restores http.DefaultClient.
func (a Api) WithHTTPClient(c *http.Client) Api {
	a.httpClient = c
	return a
}

// Key returns the configured API key ("" when unauthenticated).
func (a Api) Key() string { return a.key }

// BaseURL returns the configured base URL.
func (a Api) BaseURL() string { return a.baseURL }

// URL returns the full URL of endpoint.
func (a Api) URL(endpoint string) string {
	return a.baseURL + apiPrefix + endpoint
}

func (a Api) client() *http.Client {
	if a.httpClient != nil {
		return a.httpClient
	}
	return http.DefaultClient
}

// withKey prepends api_key to params. An empty key is still sent.
func (a Api) withKey(params Params) Params {
	out := make(Params, 0, len(params)+1)
	out = append(out, Param{Key: "api_key", Value: a.key})
	return append(out, params...)
}

// Get issues a GET to endpoint with params in the query string and decodes
// the response body into out.
func (a Api) Get(ctx context.Context, endpoint string, params Params, out any) error {
	return a.do(ctx, http.MethodGet, endpoint, params, out)
}

// Post issues a form-encoded POST to endpoint and decodes the response into out.
func (a Api) Post(ctx context.Context, endpoint string, params Params, out any) error {
	return a.do(ctx, http.MethodPost, endpoint, params, out)
}

// PrivateGet is Get with the api_key parameter injected first.
func (a Api) PrivateGet(ctx context.Context, endpoint string, params Params, out any) error {
	return a.Get(ctx, endpoint, a.withKey(params), out)
}

// PrivatePost is Post with the api_key parameter injected first.
func (a Api) PrivatePost(ctx context.Context, endpoint string, params Params, out any) error {
	return a.Post(ctx, endpoint, a.withKey(params), out)
}

func (a Api) do(ctx context.Context, method, endpoint string, params Params, out any) error {
	target := a.URL(endpoint)
	encoded := params.Encode()

	var body io.Reader
	if method == http.MethodGet {
		if encoded != "" {
			target += "?" + encoded
		}
	} else {
		body = strings.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("bitex: build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := a.client().Do(req)
	if err != nil {
		// The query may hold the api key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = a.URL(endpoint)
		}
		return fmt.Errorf("bitex: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bitex: read %s %s: %w", method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{
			Method:     method,
			URL:        a.URL(endpoint),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(msg),
		}
	}

	if out == nil {
		return nil
	}
	return decodeBody(endpoint, data, out)
}

// decodeBody decodes a response into out, keeping every failure a
// *DecodeError. Record types are called directly so their own decode errors
// reach the caller intact.
func decodeBody(endpoint string, data []byte, out any) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return decodeErr(endpoint, "empty body", nil)
	}
	if u, ok := out.(stdjson.Unmarshaler); ok {
		if err := u.UnmarshalJSON(data); err != nil {
			if IsDecode(err) {
				return err
			}
			return decodeErr(endpoint, "malformed body", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return decodeErr(endpoint, "malformed body", err)
	}
	return nil
}

// OrderBook fetches the BTC/USD order book.
func (a Api) OrderBook(ctx context.Context) (OrderBook, error) {
	var book OrderBook
	if err := a.Get(ctx, "btc_usd/market/order_book", nil, &book); err != nil {
		return OrderBook{}, err
	}
	return book, nil
}

// Transactions fetches the most recent BTC/USD trades.
func (a Api) Transactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := a.Get(ctx, "btc_usd/market/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Profile fetches the account balances of the key owner.
func (a Api) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	if err := a.PrivateGet(ctx, "private/profile", nil, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Orders lists the key owner's bids and asks in server order.
func (a Api) Orders(ctx context.Context) (OrderList, error) {
	var orders OrderList
	if err := a.PrivateGet(ctx, "private/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Bids returns the bids sub-resource.
func (a Api) Bids() Bids { return Bids{api: a} }

// Asks returns the asks sub-resource.
func (a Api) Asks() Asks { return Asks{api: a} }
