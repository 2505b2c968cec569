package middleware

import "net/http"

type Options struct {
	RateLimiter  *RateLimiter
	APIKey       string
	MaxBodyBytes int64
	CORSOrigins  []string
}

// Chain wraps the handler with the full middleware stack.
// Order: CORS → RequestID → Logging → Metrics → RateLimit → APIKey → MaxBytes → mux
func Chain(handler http.Handler, opts Options) http.Handler {
	h := handler
	if opts.MaxBodyBytes > 0 {
		h = MaxBytes(opts.MaxBodyBytes)(h)
	}
	h = APIKey(opts.APIKey)(h)
	h = RateLimit(opts.RateLimiter)(h)
	h = Metrics(h)
	h = Logging(h)
	h = RequestID(h)
	h = CORS(opts.CORSOrigins)(h)
	return h
}
