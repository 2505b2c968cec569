package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"clipprompt/internal/enhance"
	"clipprompt/internal/metrics"
	"clipprompt/internal/server/middleware"
)

type Enhancer interface {
	Enhance(ctx context.Context, req enhance.RawRequest) (*enhance.Result, error)
}

type enhanceResponse struct {
	Text string `json:"text"`
}

// Enhance serves POST /api/enhance. Any other method is rejected before the
// body is read.
func Enhance(e Enhancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		var req enhance.RawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			metrics.EnhanceErrors.WithLabelValues(string(enhance.CategoryValidation)).Inc()
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		metrics.IdeaChars.Observe(float64(utf8.RuneCountInString(req.UserPrompt)))

		start := time.Now()
		res, err := e.Enhance(r.Context(), req)
		if err != nil {
			relayErr := enhance.AsError(err)
			metrics.EnhanceErrors.WithLabelValues(string(relayErr.Category)).Inc()
			slog.Warn("enhance failed",
				"request_id", middleware.RequestIDFromContext(r.Context()),
				"category", relayErr.Category,
				"error", relayErr.Err,
			)
			writeError(w, relayErr.Status(), relayErr.Message)
			return
		}

		metrics.EnhanceDuration.WithLabelValues(string(res.Provider)).Observe(time.Since(start).Seconds())
		writeJSON(w, http.StatusOK, enhanceResponse{Text: res.Text})
	}
}
