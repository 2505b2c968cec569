package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// failingServer answers with status until failures requests have been seen,
// then with 200.
func failingServer(t *testing.T, status int, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attempts := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, attempts
}

func TestRetryClientStatuses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		failures     int32
		wantStatus   int
		wantAttempts int32
	}{
		{"503 then ok", http.StatusServiceUnavailable, 2, http.StatusOK, 3},
		{"429 then ok", http.StatusTooManyRequests, 1, http.StatusOK, 2},
		{"500 then ok", http.StatusInternalServerError, 1, http.StatusOK, 2},
		{"502 then ok", http.StatusBadGateway, 1, http.StatusOK, 2},
		{"400 is final", http.StatusBadRequest, 5, http.StatusBadRequest, 1},
		{"401 is final", http.StatusUnauthorized, 5, http.StatusUnauthorized, 1},
		{"404 is final", http.StatusNotFound, 5, http.StatusNotFound, 1},
		{"gives up after max retries", http.StatusServiceUnavailable, 10, http.StatusServiceUnavailable, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, attempts := failingServer(t, tt.status, tt.failures)
			client := NewRetryClient(srv.Client(), fastConfig())

			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/providers", nil)
			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestRetryClientDoesNotRetryPost(t *testing.T) {
	srv, attempts := failingServer(t, http.StatusServiceUnavailable, 5)
	client := NewRetryClient(srv.Client(), fastConfig())

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/enhance", strings.NewReader(`{}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestRetryClientResendsBody(t *testing.T) {
	var bodies []string
	attempts := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRetryClient(srv.Client(), fastConfig())
	req, _ := http.NewRequest(http.MethodPut, srv.URL, strings.NewReader("payload"))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if len(bodies) != 2 || bodies[0] != "payload" || bodies[1] != "payload" {
		t.Errorf("bodies = %q, want the payload twice", bodies)
	}
}

func TestRetryClientHonorsRetryAfter(t *testing.T) {
	attempts := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxDelay = 20 * time.Millisecond
	client := NewRetryClient(srv.Client(), cfg)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	// 30s is capped at MaxDelay
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Retry-After was not capped, took %v", elapsed)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		status int
		header string
		want   time.Duration
		ok     bool
	}{
		{http.StatusTooManyRequests, "2", 2 * time.Second, true},
		{http.StatusServiceUnavailable, "0", 0, true},
		{http.StatusTooManyRequests, "", 0, false},
		{http.StatusTooManyRequests, "Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
		{http.StatusInternalServerError, "5", 0, false},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		got, ok := retryAfter(resp)
		if got != tt.want || ok != tt.ok {
			t.Errorf("retryAfter(%d, %q) = %v, %v; want %v, %v", tt.status, tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRetryClientStopsOnContextCancel(t *testing.T) {
	srv, attempts := failingServer(t, http.StatusServiceUnavailable, 100)
	client := NewRetryClient(srv.Client(), RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	start := time.Now()
	_, err := client.Do(req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("retry loop ignored cancellation, took %v", elapsed)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestNewRetryClientAppliesDefaults(t *testing.T) {
	c := NewRetryClient(nil, RetryConfig{MaxRetries: 7})

	def := DefaultRetryConfig()
	if c.config.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", c.config.MaxRetries)
	}
	if c.config.InitialDelay != def.InitialDelay || c.config.MaxDelay != def.MaxDelay || c.config.Multiplier != def.Multiplier {
		t.Errorf("defaults not applied: %+v", c.config)
	}
	if c.client != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}
}
