package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/handlers"
)

func init() { Register(registerAccounts) }

func registerAccounts(r chi.Router, d deps.Deps) {
	r.Route("/api/accounts", func(r chi.Router) {
		r.Get("/", handlers.ListAccounts(d))
		r.Post("/", handlers.AddAccount(d))
		r.Get("/stats", handlers.AccountStats(d))
		r.Post("/reset", handlers.ResetAllAccounts(d))
		r.Delete("/{accountID}", handlers.RemoveAccount(d))
		r.Post("/{accountID}/reset", handlers.ResetAccount(d))
	})
}
