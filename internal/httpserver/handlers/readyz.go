package handlers

import (
	"net/http"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports readiness to take check requests: at least one usable
// account must exist.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := d.Accounts.Statistics()
		ready := stats.Available+stats.Cooldown > 0

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready})
	}
}
