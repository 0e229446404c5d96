package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/keyfile"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/utils"
)

type checkKeyRequest struct {
	Key    string `json:"key"`
	Region string `json:"region,omitempty"`
}

// CheckKey runs a single check synchronously and returns the outcome.
func CheckKey(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkKeyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Key) == "" {
			writeError(w, http.StatusBadRequest, "key is required")
			return
		}

		key := domain.NewKey(req.Key, req.Region)
		d.Logger.Info("single check requested",
			logger.String("key", key.Formatted()),
			logger.String("region", key.Region))

		result := d.Checker.CheckKey(r.Context(), key)
		writeJSON(w, http.StatusOK, result)
	}
}

// CheckStatus resolves staged progress for a check id, provisional ids
// included.
func CheckStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkID := chi.URLParam(r, "checkID")
		view := d.Checker.CheckStatus(checkID)
		if view.Status == "not_found" {
			writeNotFound(w, "check not found: "+checkID)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type checkBatchRequest struct {
	Keys    []string `json:"keys"`
	Regions []string `json:"regions,omitempty"`
	Region  string   `json:"region,omitempty"`
}

type checkBatchResponse struct {
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`
}

// CheckBatch submits a batch and returns immediately with its id.
func CheckBatch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkBatchRequest
		if !decodeBody(w, r, &req) {
			return
		}

		keys := make([]domain.Key, 0, len(req.Keys))
		for _, raw := range req.Keys {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			keys = append(keys, domain.NewKey(raw, req.Region))
		}
		if len(keys) == 0 {
			writeError(w, http.StatusBadRequest, "at least one key is required")
			return
		}
		if d.MaxKeysPerBatch > 0 && len(keys) > d.MaxKeysPerBatch {
			writeError(w, http.StatusBadRequest, "too many keys in one batch")
			return
		}

		batchID := d.Checker.CheckBatch(keys, req.Regions)
		d.Logger.Info("batch submitted",
			logger.String("batch_id", batchID),
			logger.Int("keys", len(keys)))

		writeJSON(w, http.StatusAccepted, checkBatchResponse{
			BatchID: batchID,
			Total:   len(keys),
		})
	}
}

type importResponse struct {
	Keys    []string `json:"keys"`
	Count   int      `json:"count"`
	BatchID string   `json:"batch_id,omitempty"`
}

// ImportKeys parses a text or CSV payload into keys. With ?start=true the
// parsed keys are also submitted as a batch.
func ImportKeys(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer utils.Close(r.Body)

		var (
			keys []domain.Key
			err  error
		)
		contentType := r.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/csv") {
			keys, err = keyfile.ParseCSV(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else {
			body, readErr := io.ReadAll(r.Body)
			if readErr != nil {
				writeError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			keys = keyfile.ParseText(string(body))
		}

		if len(keys) == 0 {
			writeError(w, http.StatusBadRequest, "no keys found in payload")
			return
		}
		if d.MaxKeysPerBatch > 0 && len(keys) > d.MaxKeysPerBatch {
			writeError(w, http.StatusBadRequest, "too many keys in one batch")
			return
		}

		resp := importResponse{Count: len(keys)}
		for _, k := range keys {
			resp.Keys = append(resp.Keys, k.Formatted())
		}

		if r.URL.Query().Get("start") == "true" {
			resp.BatchID = d.Checker.CheckBatch(keys, nil)
			d.Logger.Info("imported keys submitted as batch",
				logger.String("batch_id", resp.BatchID),
				logger.Int("keys", len(keys)))
			writeJSON(w, http.StatusAccepted, resp)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
