package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/accounts"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

type accountView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	ChecksCount int    `json:"checks_count"`
	IsActive    bool   `json:"is_active"`
}

// toAccountView strips the password before anything leaves the API.
func toAccountView(a *domain.Account) accountView {
	return accountView{
		ID:          a.ID,
		Email:       a.Email,
		Status:      string(a.Status),
		ChecksCount: a.ChecksCount,
		IsActive:    a.IsActive,
	}
}

// ListAccounts returns all accounts without credentials.
func ListAccounts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := d.Accounts.List()
		views := make([]accountView, 0, len(list))
		for _, a := range list {
			views = append(views, toAccountView(a))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(views),
			"accounts": views,
		})
	}
}

type addAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AddAccount registers one account. Re-adding an existing email is a no-op.
func AddAccount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addAccountRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		acc, created := d.Accounts.Add(r.Context(), req.Email, req.Password)
		if created {
			d.Logger.Info("account added", logger.String("email", req.Email))
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, toAccountView(acc))
	}
}

// RemoveAccount deletes an account by id.
func RemoveAccount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountID")
		if err := d.Accounts.Remove(r.Context(), accountID); err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				writeNotFound(w, "account not found: "+accountID)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		d.Logger.Info("account removed", logger.String("account_id", accountID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

// ResetAccount clears one account's usage counters and status.
func ResetAccount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountID")
		if err := d.Accounts.ResetChecks(r.Context(), accountID); err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				writeNotFound(w, "account not found: "+accountID)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// ResetAllAccounts clears usage counters and statuses across the pool.
func ResetAllAccounts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Accounts.ResetAll(r.Context())
		d.Logger.Info("all accounts reset")
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// AccountStats reports pool-level counters.
func AccountStats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Accounts.Statistics())
	}
}
