package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/api/models"
	"github.com/punctualhq/punctual/internal/api/response"
)

// AlertHandler handles transit alert endpoints.
type AlertHandler struct {
	alerts *alert.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alerts *alert.Service) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// CreateAlert handles POST /v1/alerts - create an alert and compute its schedule.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.alerts.Create(r.Context(), &input)
	if err != nil {
		var vErr *alert.ValidationError
		if errors.As(err, &vErr) {
			response.BadRequest(w, r, "invalid alert", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to create alert")
		return
	}

	location := fmt.Sprintf("/v1/alerts/%s", result.Alert.ID)
	response.Created(w, r, location, result)
}

// ListAlerts handles GET /v1/alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := h.alerts.List(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to list alerts")
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// GetAlert handles GET /v1/alerts/{alertId}.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	a, err := h.alerts.Get(r.Context(), alertID)
	if err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to get alert")
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

// RecalculateAlert handles POST /v1/alerts/{alertId}/recalculate - refresh the
// route estimate and derived notification times.
func (h *AlertHandler) RecalculateAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	result, err := h.alerts.Recalculate(r.Context(), alertID)
	if err != nil {
		switch {
		case errors.Is(err, alert.ErrAlertNotFound):
			response.NotFound(w, r, "alert not found")
		case errors.Is(err, alert.ErrAlertTerminal):
			response.Conflict(w, r, "alert is already sent or cancelled")
		default:
			response.InternalError(w, r, "failed to recalculate alert")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// CancelAlert handles POST /v1/alerts/{alertId}/cancel.
func (h *AlertHandler) CancelAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	a, err := h.alerts.Cancel(r.Context(), alertID)
	if err != nil {
		switch {
		case errors.Is(err, alert.ErrAlertNotFound):
			response.NotFound(w, r, "alert not found")
		case errors.Is(err, alert.ErrAlertTerminal):
			response.Conflict(w, r, "alert is already sent or cancelled")
		default:
			response.InternalError(w, r, "failed to cancel alert")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

// DeleteAlert handles DELETE /v1/alerts/{alertId}.
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	if err := h.alerts.Delete(r.Context(), alertID); err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to delete alert")
		return
	}
	response.NoContent(w, r)
}
