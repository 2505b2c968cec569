package handler

import "net/http"

type healthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}

func Health(l ProviderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := l.Status(r.Context())
		resp := healthResponse{
			Status:    "ok",
			Providers: make(map[string]bool, len(statuses)),
		}
		for _, s := range statuses {
			recordAvailability(s)
			resp.Providers[string(s.Provider)] = s.Available
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
