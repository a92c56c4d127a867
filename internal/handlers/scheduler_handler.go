package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// SchedulerHandler handles scheduler-related endpoints
type SchedulerHandler struct {
	schedulerService interfaces.SchedulerService
	results          interfaces.ResultStorage
	logger           arbor.ILogger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(
	schedulerService interfaces.SchedulerService,
	results interfaces.ResultStorage,
	logger arbor.ILogger,
) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		results:          results,
		logger:           logger,
	}
}

// StatusResponse is the payload of GET /api/status
type StatusResponse struct {
	Scheduler models.SchedulerStatus  `json:"scheduler"`
	Latest    *models.AggregateResult `json:"latest,omitempty"`
}

// StatusHandler handles GET /api/status
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	response := StatusResponse{Scheduler: h.schedulerService.Status()}

	latest, err := h.results.GetLatest(r.Context())
	switch {
	case err == nil:
		response.Latest = latest
	case errors.Is(err, interfaces.ErrNotFound):
	default:
		h.logger.Warn().Err(err).Msg("Failed to read latest result for status")
	}

	WriteJSON(w, http.StatusOK, response)
}

// TriggerHandler handles POST /api/scheduler/trigger
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.schedulerService.TriggerNow(); err != nil {
		if errors.Is(err, interfaces.ErrPassInProgress) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	WriteStarted(w, "Pipeline pass triggered")
}
