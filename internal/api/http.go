// Package api exposes the service's HTTP surface: alert queries,
// correction validation, threshold inspection, and operational probes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetfuel/sentinel/internal/ingest"
	"github.com/fleetfuel/sentinel/internal/metrics"
	"github.com/fleetfuel/sentinel/internal/model"
	"github.com/fleetfuel/sentinel/internal/store"
	"github.com/fleetfuel/sentinel/internal/thresholds"
	"github.com/fleetfuel/sentinel/internal/validate"
)

// HTTPAPI provides the HTTP endpoints for the detection service
type HTTPAPI struct {
	store      *store.MemoryStore
	window     *ingest.FleetWindow
	thresholds *thresholds.Manager
	metrics    *metrics.Metrics
	natsConn   *nats.Conn
	logger     *slog.Logger
}

// NewHTTPAPI creates a new HTTP API instance
func NewHTTPAPI(store *store.MemoryStore, window *ingest.FleetWindow, th *thresholds.Manager, m *metrics.Metrics, natsConn *nats.Conn, logger *slog.Logger) *HTTPAPI {
	return &HTTPAPI{
		store:      store,
		window:     window,
		thresholds: th,
		metrics:    m,
		natsConn:   natsConn,
		logger:     logger,
	}
}

// SetupRoutes configures HTTP routes
func (api *HTTPAPI) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/alerts", api.handleAlerts)
	mux.HandleFunc("/alerts/reset", api.handleResetAlerts)
	mux.HandleFunc("/corrections/validate", api.handleValidateCorrection)
	mux.HandleFunc("/thresholds", api.handleThresholds)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", api.handleHealth)
	mux.HandleFunc("/readyz", api.handleReady)
}

// handleAlerts handles GET /alerts with optional query parameters
func (api *HTTPAPI) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var alerts []*model.Alert

	vehicleID := r.URL.Query().Get("vehicle_id")
	severity := r.URL.Query().Get("severity")
	alertType := r.URL.Query().Get("type")
	limitStr := r.URL.Query().Get("limit")

	switch {
	case vehicleID != "":
		alerts = api.store.ByVehicle(vehicleID)
	case alertType != "":
		alerts = api.store.ByType(model.AlertType(alertType))
	case severity != "":
		alerts = api.store.BySeverity(model.Severity(severity))
	default:
		alerts = api.store.All()
	}

	if limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(alerts) {
			alerts = alerts[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":    alerts,
		"count":     len(alerts),
		"timestamp": time.Now().UTC(),
	})
}

// handleResetAlerts handles POST /alerts/reset
func (api *HTTPAPI) handleResetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.store.Clear()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Alerts cleared successfully",
		"timestamp": time.Now().UTC(),
	})
}

// validateRequest is the POST /corrections/validate payload
type validateRequest struct {
	VehicleID  string              `json:"vehicle_id"`
	Correction validate.Correction `json:"correction"`
}

// validateResponse carries the minted correction ID and the verdict
type validateResponse struct {
	CorrectionID string          `json:"correction_id"`
	Result       validate.Result `json:"result"`
}

// handleValidateCorrection handles POST /corrections/validate. The
// referenced fill-up and the vehicle's history come from the telemetry
// window; an unknown vehicle or record is a 404.
func (api *HTTPAPI) handleValidateCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VehicleID == "" || req.Correction.RecordID == "" || req.Correction.Field == "" {
		http.Error(w, "vehicle_id, correction.record_id and correction.field are required", http.StatusBadRequest)
		return
	}

	vehicle, ok := api.findVehicle(req.VehicleID)
	if !ok {
		http.Error(w, "Unknown vehicle", http.StatusNotFound)
		return
	}

	in := api.window.InputFor(vehicle, time.Now().UTC())
	fillUp, ok := findFillUp(in.FillUps, req.Correction.RecordID)
	if !ok {
		http.Error(w, "Unknown fill-up record", http.StatusNotFound)
		return
	}

	if req.Correction.ID == "" {
		req.Correction.ID = uuid.New().String()
	}

	result := validate.ValidateCorrection(req.Correction, fillUp, vehicle, in.FillUps)

	outcome := "valid"
	if !result.Valid {
		outcome = "invalid"
	}
	api.metrics.RecordValidation(outcome)
	api.logger.Info("Correction validated",
		"correction_id", req.Correction.ID,
		"vehicle_id", req.VehicleID,
		"field", req.Correction.Field,
		"valid", result.Valid,
		"score", result.Score)

	writeJSON(w, http.StatusOK, validateResponse{
		CorrectionID: req.Correction.ID,
		Result:       result,
	})
}

// handleThresholds handles GET /thresholds
func (api *HTTPAPI) handleThresholds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, api.thresholds.Current())
}

// handleHealth handles GET /healthz
func (api *HTTPAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"alerts":    api.store.Stats(),
		"telemetry": api.window.Stats(),
	})
}

// handleReady handles GET /readyz
func (api *HTTPAPI) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	natsConnected := api.natsConn != nil && api.natsConn.IsConnected()
	fleetLoaded := len(api.window.Vehicles()) > 0

	ready := natsConnected && fleetLoaded
	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":         status,
		"timestamp":      time.Now().UTC(),
		"nats_connected": natsConnected,
		"fleet_loaded":   fleetLoaded,
	})
}

func (api *HTTPAPI) findVehicle(vehicleID string) (model.Vehicle, bool) {
	for _, v := range api.window.Vehicles() {
		if v.ID == vehicleID {
			return v, true
		}
	}
	return model.Vehicle{}, false
}

func findFillUp(fillUps []model.FillUp, id string) (model.FillUp, bool) {
	for _, f := range fillUps {
		if f.ID == id {
			return f, true
		}
	}
	return model.FillUp{}, false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
