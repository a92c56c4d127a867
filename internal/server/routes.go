package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Root: banner line or static front end
	mux.HandleFunc("/", s.app.PageHandler.RootHandler)

	// Read side
	mux.HandleFunc("/sentiment", s.app.SentimentHandler.SentimentHandler)
	mux.HandleFunc("/reasoning", s.app.SentimentHandler.ReasoningHandler)
	mux.HandleFunc("/reasoning.html", s.app.SentimentHandler.ReasoningHTMLHandler)
	mux.HandleFunc("/api/chart-data", s.app.SentimentHandler.ChartDataHandler)
	mux.HandleFunc("/api/history", s.app.SentimentHandler.HistoryHandler)

	// Scheduler
	mux.HandleFunc("/api/status", s.app.SchedulerHandler.StatusHandler)
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	// MCP (streamable HTTP)
	mux.Handle("/mcp", s.app.MCPHandler)

	return mux
}
