package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/checker"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/keyfile"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

// BatchStatus reports progress and per-status counts for one batch.
func BatchStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		st, err := d.Checker.Status(batchID)
		if err != nil {
			if errors.Is(err, checker.ErrBatchNotFound) {
				writeNotFound(w, "batch not found: "+batchID)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// BatchResults returns the accumulated outcomes of one batch.
func BatchResults(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		results, err := d.Checker.Results(batchID)
		if err != nil {
			if errors.Is(err, checker.ErrBatchNotFound) {
				writeNotFound(w, "batch not found: "+batchID)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"batch_id": batchID,
			"count":    len(results),
			"results":  results,
		})
	}
}

// BatchExport downloads batch outcomes as CSV or TXT, optionally filtered
// by status (?status=valid,used&format=csv).
func BatchExport(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		results, err := d.Checker.Results(batchID)
		if err != nil {
			if errors.Is(err, checker.ErrBatchNotFound) {
				writeNotFound(w, "batch not found: "+batchID)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if raw := r.URL.Query().Get("status"); raw != "" {
			var statuses []domain.KeyStatus
			for _, s := range strings.Split(raw, ",") {
				s = strings.TrimSpace(s)
				if s != "" {
					statuses = append(statuses, domain.KeyStatus(s))
				}
			}
			results = keyfile.FilterByStatus(results, statuses...)
		}

		format := r.URL.Query().Get("format")
		switch format {
		case "txt":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="`+batchID+`.txt"`)
			if err := keyfile.WriteTXT(w, results); err != nil {
				d.Logger.Error("txt export failed", logger.Error(err))
			}
		case "", "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="`+batchID+`.csv"`)
			if err := keyfile.WriteCSV(w, results); err != nil {
				d.Logger.Error("csv export failed", logger.Error(err))
			}
		default:
			writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is already open to the UI via CORS; the upgrade follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// BatchStream pushes batch progress over a websocket until the batch
// completes or the client goes away.
func BatchStream(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		if _, err := d.Checker.Status(batchID); err != nil {
			writeNotFound(w, "batch not found: "+batchID)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Logger.Warn("websocket upgrade failed", logger.Error(err))
			return
		}
		defer func() { _ = conn.Close() }()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			st, err := d.Checker.Status(batchID)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"status": "not_found"})
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
			if st.Status == "completed" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch completed"))
				return
			}

			select {
			case <-ticker.C:
			case <-r.Context().Done():
				return
			}
		}
	}
}
