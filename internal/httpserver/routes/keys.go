package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/handlers"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/mw"
)

func init() { Register(registerKeys) }

func registerKeys(r chi.Router, d deps.Deps) {
	r.Route("/api/keys", func(r chi.Router) {
		// Submissions burn rate-limit tokens; status polling stays free.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(mw.RateLimitConfig{
				Burst:        d.RateBurst,
				RefillPerMin: d.RateRefillPerMin,
				TrustProxy:   d.TrustProxy,
			}))
			r.Post("/check", handlers.CheckKey(d))
			r.Post("/check-batch", handlers.CheckBatch(d))
			r.Post("/import", handlers.ImportKeys(d))
		})
		r.Get("/status/{checkID}", handlers.CheckStatus(d))
	})
}
