package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/handlers"
)

func init() { Register(registerBatches) }

func registerBatches(r chi.Router, d deps.Deps) {
	r.Route("/api/batches/{batchID}", func(r chi.Router) {
		r.Get("/", handlers.BatchStatus(d))
		r.Get("/results", handlers.BatchResults(d))
		r.Get("/export", handlers.BatchExport(d))
		r.Get("/ws", handlers.BatchStream(d))
	})
}
