package handlers

import (
	"bytes"
	"errors"
	"html"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"github.com/yuin/goldmark"
)

const (
	msgSentimentNotReady = "sentiment not ready"
	msgReasoningNotReady = "reasoning not ready"

	defaultHistoryLimit = 500
	maxHistoryLimit     = 10000
)

// SentimentHandler serves the read side: latest score, reasoning, chart and history
type SentimentHandler struct {
	results   interfaces.ResultStorage
	reasoning interfaces.ReasoningStorage
	chart     ChartReader
	markdown  goldmark.Markdown
	logger    arbor.ILogger
}

// NewSentimentHandler creates a new SentimentHandler
func NewSentimentHandler(results interfaces.ResultStorage, reasoning interfaces.ReasoningStorage, chart ChartReader, logger arbor.ILogger) *SentimentHandler {
	return &SentimentHandler{
		results:   results,
		reasoning: reasoning,
		chart:     chart,
		markdown:  goldmark.New(),
		logger:    logger,
	}
}

// SentimentHandler handles GET /sentiment
func (h *SentimentHandler) SentimentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	result, err := h.results.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, msgSentimentNotReady)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to read latest result")
		WriteError(w, http.StatusInternalServerError, "failed to read sentiment")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]float64{"average": result.AverageScore})
}

// ReasoningHandler handles GET /reasoning
func (h *SentimentHandler) ReasoningHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	doc, ok := h.readReasoning(w, r)
	if !ok {
		return
	}
	WriteText(w, http.StatusOK, doc.Text)
}

// ReasoningHTMLHandler handles GET /reasoning.html
func (h *SentimentHandler) ReasoningHTMLHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	doc, ok := h.readReasoning(w, r)
	if !ok {
		return
	}

	var body bytes.Buffer
	if err := h.markdown.Convert([]byte(doc.Text), &body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render reasoning")
		WriteError(w, http.StatusInternalServerError, "failed to render reasoning")
		return
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Reasoning</title></head><body>\n")
	page.WriteString("<p><small>Updated " + html.EscapeString(doc.UpdatedAt.Format("2006-01-02 15:04:05 MST")) + "</small></p>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page.Bytes())
}

// ChartDataHandler handles GET /api/chart-data
func (h *SentimentHandler) ChartDataHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	data, err := h.chart.ChartData(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to project chart data")
		WriteError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	WriteJSON(w, http.StatusOK, data)
}

// HistoryHandler handles GET /api/history?limit=N
func (h *SentimentHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, defaultHistoryLimit, maxHistoryLimit)
	records, err := h.chart.History(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read history")
		WriteError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (h *SentimentHandler) readReasoning(w http.ResponseWriter, r *http.Request) (*models.ReasoningDocument, bool) {
	doc, err := h.reasoning.Get(r.Context())
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteText(w, http.StatusNotFound, msgReasoningNotReady)
			return nil, false
		}
		h.logger.Error().Err(err).Msg("Failed to read reasoning")
		WriteText(w, http.StatusInternalServerError, "failed to read reasoning")
		return nil, false
	}
	return doc, true
}
