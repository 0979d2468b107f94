package api

import (
	"encoding/json"
	"net/http"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/export"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Handler holds dependencies for the API handlers.
type Handler struct {
	pipe    *pipeline.Pipeline
	cases   domain.CaseStore
	ledgers domain.LedgerStore
	bus     domain.EventBus
	version string
}

// NewHandler creates an API handler.
func NewHandler(pipe *pipeline.Pipeline, cases domain.CaseStore, ledgers domain.LedgerStore, bus domain.EventBus, version string) *Handler {
	return &Handler{
		pipe:    pipe,
		cases:   cases,
		ledgers: ledgers,
		bus:     bus,
		version: version,
	}
}

// InvestigationRequest is the request body for POST /investigations.
type InvestigationRequest struct {
	AlertID string `json:"alertId"`

	// Masked substitutes personally identifying columns in the export.
	Masked bool `json:"masked,omitempty"`
}

// Investigate handles POST /investigations: runs the pipeline synchronously
// and returns the run result.
func (h *Handler) Investigate(w http.ResponseWriter, r *http.Request) {
	var req InvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.AlertID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alertId is required",
		})
		return
	}

	res := h.pipe.Run(r.Context(), req.AlertID)
	if req.Masked {
		res.Export = export.Mask(res.Export)
	}

	status := http.StatusOK
	if !res.Success {
		switch res.Kind {
		case pipeline.KindNotFound:
			status = http.StatusNotFound
		case pipeline.KindInconsistentAlert, pipeline.KindValidation:
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, res)
}

// InvestigateAsync handles POST /investigations/async: publishes a request
// to the bus and returns immediately.
func (h *Handler) InvestigateAsync(w http.ResponseWriter, r *http.Request) {
	var req InvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.AlertID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alertId is required",
		})
		return
	}
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not configured",
		})
		return
	}

	payload, _ := json.Marshal(map[string]string{"alertId": req.AlertID})
	if err := h.bus.Publish(r.Context(), domain.TopicInvestigationRequested, payload); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "publish failed",
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"alertId": req.AlertID,
		"status":  "queued",
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready: checks both backing stores.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if h.cases != nil {
		if err := h.cases.Ping(ctx); err != nil {
			checks["casedb"] = err.Error()
			healthy = false
		} else {
			checks["casedb"] = "ok"
		}
	}
	if h.ledgers != nil {
		if err := h.ledgers.Ping(ctx); err != nil {
			checks["ledgerdb"] = err.Error()
			healthy = false
		} else {
			checks["ledgerdb"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
