package telemetry

import (
	"net/http"

	"github.com/starwatch-station/asteria/internal/httputil"
)

// HealthHandler serves the current Snapshot as JSON, satisfying §10.3's
// "/health JSON" requirement.
func (s *Stats) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, s.LatestSnapshot())
	}
}

// AttachRoutes mounts /health and the live dashboard onto mux.
func (s *Stats) AttachRoutes(mux *http.ServeMux) {
	mux.Handle("/health", s.HealthHandler())
	mux.Handle("/telemetry/dashboard", s.DashboardHandler())
}
