package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Count  *int   `json:"count,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountStats := d.Accounts.Statistics()
		usable := accountStats.Available + accountStats.Cooldown

		egressOK := true
		egressMode := "disabled"
		if d.EgressEnabled {
			egressMode = "idle"
			if svc, _ := d.Egress.Current(); svc != nil {
				egressMode = "connected"
			}
		}

		components := map[string]componentStatus{
			"accounts": {
				OK:    usable > 0,
				Count: &accountStats.Total,
			},
			"egress": {
				OK:   egressOK,
				Mode: egressMode,
			},
			"redis": checkRedis(d),
			"statuses": {
				OK:    true,
				Count: intPtr(d.Statuses.Len()),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func intPtr(v int) *int { return &v }

func determineMode(components map[string]componentStatus) string {
	// No usable accounts means no check can run at all
	if accounts, exists := components["accounts"]; exists && !accounts.OK {
		return "critical"
	}

	// Redis down means state survives only in memory
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "operational"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "persistence-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "persistence-disabled",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "persistence-enabled",
	}
}
