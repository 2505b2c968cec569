package handler

import (
	"context"
	"net/http"

	"clipprompt/internal/enhance"
	"clipprompt/internal/metrics"
)

type ProviderLister interface {
	Status(ctx context.Context) []enhance.ProviderStatus
	MultiProvider() bool
	DefaultProvider() enhance.Provider
}

type providerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type providersResponse struct {
	MultiProvider bool           `json:"multiProvider"`
	Default       string         `json:"default"`
	Providers     []providerInfo `json:"providers"`
}

func Providers(l ProviderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		resp := providersResponse{
			MultiProvider: l.MultiProvider(),
			Default:       string(l.DefaultProvider()),
		}
		for _, s := range l.Status(r.Context()) {
			recordAvailability(s)
			resp.Providers = append(resp.Providers, providerInfo{
				ID:        string(s.Provider),
				Name:      s.Name,
				Available: s.Available,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func recordAvailability(s enhance.ProviderStatus) {
	v := 0.0
	if s.Available {
		v = 1
	}
	metrics.ProviderAvailable.WithLabelValues(string(s.Provider)).Set(v)
}
