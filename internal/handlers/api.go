package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// APIHandler serves version, health and the JSON 404
type APIHandler struct {
	history   interfaces.HistoryStorage
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// HealthResponse is the payload of GET /api/health
type HealthResponse struct {
	Status      string                `json:"status"`
	Storage     string                `json:"storage"`
	Scheduler   models.SchedulerState `json:"scheduler,omitempty"`
	Passes      int                   `json:"passes"`
	Failures    int                   `json:"failures"`
	LastRunID   string                `json:"last_run_id,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
	LastScoreAt *time.Time            `json:"last_score_at,omitempty"`
}

// NewAPIHandler creates the API handler. scheduler may be nil in single-pass mode.
func NewAPIHandler(history interfaces.HistoryStorage, scheduler interfaces.SchedulerService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		history:   history,
		scheduler: scheduler,
		logger:    logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler reports history storage reachability and the state of the pass loop.
// An unreachable store answers 503; a failing last pass only marks the service degraded.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	resp := HealthResponse{Status: "ok", Storage: "ok"}

	latest, err := h.history.ReadLatest(r.Context())
	switch {
	case err == nil:
		resp.LastScoreAt = &latest.Timestamp
	case errors.Is(err, interfaces.ErrNotFound):
	default:
		h.logger.Warn().Err(err).Msg("Health check could not read history")
		resp.Status = "unavailable"
		resp.Storage = "unreachable"
	}

	if h.scheduler != nil {
		status := h.scheduler.Status()
		resp.Scheduler = status.State
		resp.Passes = status.Passes
		resp.Failures = status.Failures
		resp.LastRunID = status.LastRunID
		resp.LastError = status.LastError
		if status.LastError != "" && resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Storage != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, resp)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
