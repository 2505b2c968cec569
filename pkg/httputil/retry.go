// Package httputil holds the retrying transport used for idempotent relay
// reads.
package httputil

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryClient resends idempotent requests after transient failures, backing
// off exponentially with jitter. A Retry-After header on 429/503 replaces the
// computed delay, capped at MaxDelay. Non-idempotent requests go out once.
type RetryClient struct {
	client *http.Client
	config RetryConfig
}

func NewRetryClient(client *http.Client, config RetryConfig) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}
	applyRetryDefaults(&config)
	return &RetryClient{client: client, config: config}
}

func applyRetryDefaults(cfg *RetryConfig) {
	def := DefaultRetryConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = def.Multiplier
	}
}

func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	if !idempotent(req.Method) {
		return c.client.Do(req)
	}

	backoff := c.config.InitialDelay
	for attempt := 0; ; attempt++ {
		resp, err := c.client.Do(req)
		if attempt == c.config.MaxRetries || !retryable(resp, err) {
			return resp, err
		}

		wait := applyJitter(backoff)
		if after, ok := retryAfter(resp); ok {
			wait = min(after, c.config.MaxDelay)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		if err := sleep(req.Context(), wait); err != nil {
			return nil, err
		}
		backoff = min(time.Duration(float64(backoff)*c.config.Multiplier), c.config.MaxDelay)

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func idempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return true
		}
		var opErr *net.OpError
		return errors.As(err, &opErr)
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// retryAfter reads a delay-seconds Retry-After header. HTTP dates are ignored.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func applyJitter(delay time.Duration) time.Duration {
	return time.Duration(float64(delay) * (0.9 + rand.Float64()*0.2))
}
