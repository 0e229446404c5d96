package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/egress"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

type egressServiceView struct {
	Provider      string                 `json:"provider"`
	Name          string                 `json:"name"`
	Status        string                 `json:"status"`
	CurrentRegion *domain.EgressRegion   `json:"current_region,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Regions       []*domain.EgressRegion `json:"regions"`
}

// toEgressView drops auth data before anything leaves the API.
func toEgressView(s *domain.EgressService) egressServiceView {
	return egressServiceView{
		Provider:      string(s.Provider),
		Name:          s.Name,
		Status:        string(s.Status),
		CurrentRegion: s.CurrentRegion,
		ErrorMessage:  s.ErrorMessage,
		Regions:       s.Regions,
	}
}

// ListEgressServices returns all configured services without credentials.
func ListEgressServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := d.Egress.List()
		views := make([]egressServiceView, 0, len(list))
		for _, s := range list {
			views = append(views, toEgressView(s))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(views),
			"services": views,
		})
	}
}

type addEgressServiceRequest struct {
	Provider string            `json:"provider"`
	Name     string            `json:"name"`
	Auth     map[string]string `json:"auth,omitempty"`
}

// AddEgressService registers a VPN service. Re-adding a name is a no-op.
func AddEgressService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addEgressServiceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		var provider domain.EgressProvider
		switch strings.ToLower(strings.TrimSpace(req.Provider)) {
		case "nordvpn":
			provider = domain.ProviderNordVPN
		case "surfshark":
			provider = domain.ProviderSurfshark
		case "custom", "":
			provider = domain.ProviderCustom
		default:
			writeError(w, http.StatusBadRequest, "unknown provider: "+req.Provider)
			return
		}

		svc, created := d.Egress.AddService(r.Context(), provider, req.Name, req.Auth)
		if created {
			d.Logger.Info("egress service added",
				logger.String("name", req.Name),
				logger.String("provider", string(provider)))
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, toEgressView(svc))
	}
}

// RemoveEgressService deletes a service, disconnecting it first if needed.
func RemoveEgressService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := d.Egress.RemoveService(r.Context(), name); err != nil {
			if errors.Is(err, egress.ErrServiceNotFound) {
				writeNotFound(w, "egress service not found: "+name)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

type addRegionRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// AddEgressRegion adds one region to a service.
func AddEgressRegion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var req addRegionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}
		if req.ID == "" {
			req.ID = strings.ToLower(req.Code)
		}

		region, err := d.Egress.AddRegion(r.Context(), name, req.ID, req.Name, req.Code)
		if err != nil {
			if errors.Is(err, egress.ErrServiceNotFound) {
				writeNotFound(w, "egress service not found: "+name)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, region)
	}
}

// RemoveEgressRegion removes one region from a service.
func RemoveEgressRegion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		regionID := chi.URLParam(r, "regionID")
		if err := d.Egress.RemoveRegion(r.Context(), name, regionID); err != nil {
			switch {
			case errors.Is(err, egress.ErrServiceNotFound):
				writeNotFound(w, "egress service not found: "+name)
			case errors.Is(err, egress.ErrRegionNotFound):
				writeNotFound(w, "region not found: "+regionID)
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

type egressConnectRequest struct {
	Service string `json:"service"`
	Region  string `json:"region"`
}

// EgressConnect switches the active tunnel to the requested service/region.
func EgressConnect(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req egressConnectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Service == "" || req.Region == "" {
			writeError(w, http.StatusBadRequest, "service and region are required")
			return
		}

		if err := d.Egress.Connect(r.Context(), req.Service, req.Region); err != nil {
			switch {
			case errors.Is(err, egress.ErrServiceNotFound):
				writeNotFound(w, "egress service not found: "+req.Service)
			case errors.Is(err, egress.ErrRegionNotFound):
				writeNotFound(w, "region not found: "+req.Region)
			case errors.Is(err, egress.ErrRegionInactive):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusBadGateway, err.Error())
			}
			return
		}

		svc, region := d.Egress.Current()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "connected",
			"service": svc.Name,
			"region":  region,
		})
	}
}

// EgressDisconnect tears down the active tunnel. Idempotent.
func EgressDisconnect(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Egress.Disconnect(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
	}
}

// EgressStatus reports the active connection and the probed external IP.
func EgressStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, region := d.Egress.Current()
		resp := map[string]any{
			"connected": svc != nil,
		}
		if svc != nil {
			resp["service"] = svc.Name
			resp["region"] = region
			resp["external_ip"] = d.Egress.CurrentIP(r.Context())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
