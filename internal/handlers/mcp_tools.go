package handlers

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetSentimentTool returns the get_sentiment tool definition
func createGetSentimentTool() mcp.Tool {
	return mcp.NewTool("get_sentiment",
		mcp.WithDescription("Latest aggregate outlook score in [-1, 1] with post and chunk counts"),
	)
}

// createGetReasoningTool returns the get_reasoning tool definition
func createGetReasoningTool() mcp.Tool {
	return mcp.NewTool("get_reasoning",
		mcp.WithDescription("Reasoning document explaining the latest score, one block per chunk"),
	)
}

// createGetChartDataTool returns the get_chart_data tool definition
func createGetChartDataTool() mcp.Tool {
	return mcp.NewTool("get_chart_data",
		mcp.WithDescription("Hourly averaged score series as [timestampMillis, score] pairs"),
	)
}

// createGetHistoryTool returns the get_history tool definition
func createGetHistoryTool() mcp.Tool {
	return mcp.NewTool("get_history",
		mcp.WithDescription("Most recent raw score history records, oldest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max records (default: 50, max: 1000)"),
		),
	)
}
