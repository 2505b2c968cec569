package handler

import (
	"net/http"

	"clipprompt/internal/enhance"
)

type option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Tones        []option          `json:"tones"`
	PointsOfView []option          `json:"pointsOfView"`
	Defaults     map[string]string `json:"defaults"`
}

// Options lists the closed tone and point-of-view sets so clients can build
// their choice lists.
func Options() http.HandlerFunc {
	resp := optionsResponse{
		Defaults: map[string]string{
			"contentTone": string(enhance.ToneNeutral),
			"pov":         string(enhance.POVThirdPerson),
		},
	}
	for _, t := range enhance.Tones {
		resp.Tones = append(resp.Tones, option{ID: string(t), Label: string(t)})
	}
	for _, p := range enhance.PointsOfView {
		resp.PointsOfView = append(resp.PointsOfView, option{ID: string(p), Label: p.Label()})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
