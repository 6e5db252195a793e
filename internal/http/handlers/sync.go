package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oncontrol/platform/internal/gateway"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

// SyncHandler exposes the per-collection mutation endpoints. Reads are not
// served here: clients receive state through the live feed.
type SyncHandler struct {
	gw     *gateway.Gateway
	logger *logging.Logger
}

func NewSyncHandler(gw *gateway.Gateway, logger *logging.Logger) *SyncHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncHandler{gw: gw, logger: logger}
}

type createdResponse struct {
	ID string `json:"id"`
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return v, false
	}
	return v, true
}

// CreatePatient handles POST /api/patients.
func (h *SyncHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeBody[model.Patient](w, r)
	if !ok {
		return
	}
	id, err := h.gw.CreatePatient(r.Context(), p)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// UpdatePatient handles PATCH /api/patients/{id}.
func (h *SyncHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[gateway.PatientPatch](w, r)
	if !ok {
		return
	}
	if err := h.gw.UpdatePatient(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePatient handles DELETE /api/patients/{id}.
func (h *SyncHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeletePatient(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAppointment handles POST /api/appointments.
func (h *SyncHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	a, ok := decodeBody[model.Appointment](w, r)
	if !ok {
		return
	}
	id, err := h.gw.CreateAppointment(r.Context(), a)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// UpdateAppointment handles PATCH /api/appointments/{id}.
func (h *SyncHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[gateway.AppointmentPatch](w, r)
	if !ok {
		return
	}
	if err := h.gw.UpdateAppointment(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAppointment handles DELETE /api/appointments/{id}.
func (h *SyncHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteAppointment(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAlert handles POST /api/alerts.
func (h *SyncHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	a, ok := decodeBody[model.Alert](w, r)
	if !ok {
		return
	}
	id, err := h.gw.CreateAlert(r.Context(), a)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// UpdateAlert handles PATCH /api/alerts/{id}.
func (h *SyncHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[gateway.AlertPatch](w, r)
	if !ok {
		return
	}
	if err := h.gw.UpdateAlert(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAlert handles DELETE /api/alerts/{id}.
func (h *SyncHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTreatment handles POST /api/treatments.
func (h *SyncHandler) CreateTreatment(w http.ResponseWriter, r *http.Request) {
	tr, ok := decodeBody[model.Treatment](w, r)
	if !ok {
		return
	}
	id, err := h.gw.CreateTreatment(r.Context(), tr)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// UpdateTreatment handles PATCH /api/treatments/{id}.
func (h *SyncHandler) UpdateTreatment(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[gateway.TreatmentPatch](w, r)
	if !ok {
		return
	}
	if err := h.gw.UpdateTreatment(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTreatment handles DELETE /api/treatments/{id}.
func (h *SyncHandler) DeleteTreatment(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteTreatment(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateThresholds handles PUT /api/settings/thresholds.
func (h *SyncHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[gateway.ThresholdsPatch](w, r)
	if !ok {
		return
	}
	if err := h.gw.UpdateThresholds(r.Context(), patch); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
