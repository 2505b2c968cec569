package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipprompt/internal/enhance"
	"clipprompt/internal/server/handler"
	"clipprompt/internal/server/middleware"
)

type Options struct {
	APIKey       string
	MaxBodyBytes int64
	RateLimit    float64
	RateBurst    int
	CORSOrigins  []string
}

// SetupMux wires handlers with the full middleware chain.
func SetupMux(relay *enhance.Relay, opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/enhance", handler.Enhance(relay))
	mux.HandleFunc("/api/providers", handler.Providers(relay))
	mux.HandleFunc("/api/options", handler.Options())
	mux.HandleFunc("/api/health", handler.Health(relay))
	mux.Handle("/metrics", promhttp.Handler())

	var rl *middleware.RateLimiter
	if opts.RateLimit > 0 {
		rl = middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst)
	}

	return middleware.Chain(mux, middleware.Options{
		RateLimiter:  rl,
		APIKey:       opts.APIKey,
		MaxBodyBytes: opts.MaxBodyBytes,
		CORSOrigins:  opts.CORSOrigins,
	})
}
