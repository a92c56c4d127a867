package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
)

// PageHandler serves the root: a banner line, or the static front end
type PageHandler struct {
	logger arbor.ILogger
	static http.Handler
}

func NewPageHandler(staticDir string, logger arbor.ILogger) *PageHandler {
	h := &PageHandler{logger: logger}

	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			h.static = http.FileServer(http.Dir(staticDir))
			logger.Info().Str("dir", staticDir).Msg("Serving static front end")
		} else {
			logger.Warn().Str("dir", staticDir).Msg("Static directory not found, serving banner only")
		}
	}

	return h
}

// RootHandler handles GET /
func (h *PageHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if h.static != nil {
		h.static.ServeHTTP(w, r)
		return
	}

	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteText(w, http.StatusOK, fmt.Sprintf("portent %s - imageboard outlook sentiment. See /sentiment, /reasoning and /api/chart-data\n", common.GetVersion()))
}
