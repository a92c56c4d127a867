package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
)

// MCPHandler exposes the sentiment read side as MCP tools over streamable HTTP
type MCPHandler struct {
	results   interfaces.ResultStorage
	reasoning interfaces.ReasoningStorage
	chart     ChartReader
	logger    arbor.ILogger
	transport http.Handler
}

// NewMCPHandler creates the MCP server and registers its tools
func NewMCPHandler(results interfaces.ResultStorage, reasoning interfaces.ReasoningStorage, chart ChartReader, logger arbor.ILogger) *MCPHandler {
	h := &MCPHandler{
		results:   results,
		reasoning: reasoning,
		chart:     chart,
		logger:    logger,
	}

	mcpServer := server.NewMCPServer(
		"portent",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createGetSentimentTool(), h.handleGetSentiment)
	mcpServer.AddTool(createGetReasoningTool(), h.handleGetReasoning)
	mcpServer.AddTool(createGetChartDataTool(), h.handleGetChartData)
	mcpServer.AddTool(createGetHistoryTool(), h.handleGetHistory)

	h.transport = server.NewStreamableHTTPServer(mcpServer)
	return h
}

// ServeHTTP handles /mcp
func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.transport.ServeHTTP(w, r)
}

// handleGetSentiment implements the get_sentiment tool
func (h *MCPHandler) handleGetSentiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.results.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return mcp.NewToolResultText(msgSentimentNotReady), nil
		}
		h.logger.Error().Err(err).Msg("MCP get_sentiment failed")
		return mcp.NewToolResultError(fmt.Sprintf("Read error: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Average score: %.2f\n", result.AverageScore))
	sb.WriteString(fmt.Sprintf("Posts: %d\n", result.TotalPostCount))
	sb.WriteString(fmt.Sprintf("Chunks: %d (%d contributing)\n", result.ChunkCount, result.ContributingChunks))
	sb.WriteString(fmt.Sprintf("Backend: %s, policy: %s, mode: %s\n", result.Backend, result.Policy, result.Mode))
	sb.WriteString(fmt.Sprintf("Computed: %s\n", result.Timestamp.Format(time.RFC3339)))

	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetReasoning implements the get_reasoning tool
func (h *MCPHandler) handleGetReasoning(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := h.reasoning.Get(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return mcp.NewToolResultText(msgReasoningNotReady), nil
		}
		h.logger.Error().Err(err).Msg("MCP get_reasoning failed")
		return mcp.NewToolResultError(fmt.Sprintf("Read error: %v", err)), nil
	}
	return mcp.NewToolResultText(doc.Text), nil
}

// handleGetChartData implements the get_chart_data tool
func (h *MCPHandler) handleGetChartData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := h.chart.ChartData(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("MCP get_chart_data failed")
		return mcp.NewToolResultError(fmt.Sprintf("Read error: %v", err)), nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

// handleGetHistory implements the get_history tool
func (h *MCPHandler) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 50)
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	records, err := h.chart.History(ctx, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("MCP get_history failed")
		return mcp.NewToolResultError(fmt.Sprintf("Read error: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No history recorded yet"), nil
	}

	var sb strings.Builder
	for _, record := range records {
		sb.WriteString(fmt.Sprintf("%s  %.2f\n", record.Timestamp.Format(time.RFC3339), record.Score))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
