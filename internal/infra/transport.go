package infra

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id used to correlate client and server logs.
const RequestIDHeader = "X-Request-Id"

// GuardedTransport wraps an http.RoundTripper with an optional rate limiter
// and circuit breaker, and logs every exchange at debug level.
// Transport errors and 5xx responses count as breaker failures; 4xx do not.
type GuardedTransport struct {
	Base    http.RoundTripper // nil means http.DefaultTransport
	Limiter *RateLimiter
	Breaker *CircuitBreaker
	Logger  *slog.Logger
}

func (t *GuardedTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *GuardedTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper.
func (t *GuardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Breaker != nil && !t.Breaker.Allow() {
		closeBody(req)
		return nil, ErrCircuitOpen
	}
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			closeBody(req)
			return nil, err
		}
	}

	// RoundTrippers must not modify the caller's request.
	id := uuid.NewString()
	out := req.Clone(req.Context())
	out.Header.Set(RequestIDHeader, id)

	start := time.Now()
	resp, err := t.base().RoundTrip(out)
	elapsed := time.Since(start)

	log := t.logger().With(
		slog.String("request_id", id),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Duration("elapsed", elapsed),
	)

	if err != nil {
		t.recordFailure()
		log.Debug("Bitex request failed", slog.Any("error", err))
		return nil, err
	}

	if resp.StatusCode >= 500 {
		t.recordFailure()
	} else if t.Breaker != nil {
		t.Breaker.RecordSuccess()
	}
	log.Debug("Bitex request", slog.Int("status", resp.StatusCode))
	return resp, nil
}

// closeBody honors the RoundTripper contract when the request is never sent.
func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

func (t *GuardedTransport) recordFailure() {
	if t.Breaker != nil {
		t.Breaker.RecordFailure()
	}
}

// NewHTTPClient builds the http.Client used by the Bitex client from cfg.
func NewHTTPClient(cfg *Config, logger *slog.Logger) *http.Client {
	transport := &GuardedTransport{Logger: logger}

	if rl := cfg.Guard.RateLimit; rl.PerSecond > 0 {
		transport.Limiter = NewRateLimiter(rl.Burst, rl.PerSecond)
	}
	if cbCfg, ok := CircuitBreakerConfigFrom(cfg); ok {
		transport.Breaker = NewCircuitBreaker(cbCfg)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.API.Bitex.TimeoutSec) * time.Second,
	}
}
