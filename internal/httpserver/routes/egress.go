package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/handlers"
)

func init() { Register(registerEgress) }

func registerEgress(r chi.Router, d deps.Deps) {
	r.Route("/api/egress", func(r chi.Router) {
		r.Get("/services", handlers.ListEgressServices(d))
		r.Post("/services", handlers.AddEgressService(d))
		r.Delete("/services/{name}", handlers.RemoveEgressService(d))
		r.Post("/services/{name}/regions", handlers.AddEgressRegion(d))
		r.Delete("/services/{name}/regions/{regionID}", handlers.RemoveEgressRegion(d))
		r.Post("/connect", handlers.EgressConnect(d))
		r.Post("/disconnect", handlers.EgressDisconnect(d))
		r.Get("/status", handlers.EgressStatus(d))
	})
}
