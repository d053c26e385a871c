package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

// NewServer registers the corpus tools on a stdio-ready MCP server.
func NewServer(query ports.QueryService, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"groundedqa",
		version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTool(askCorpusTool(), handleAskCorpus(query))
	return mcpServer
}

func handleAskCorpus(query ports.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("Error: question parameter is required"), nil
		}

		result, err := query.Ask(ctx, question)
		if err != nil {
			failure := domain.DescribeFailure(err)
			slog.Error("mcp_ask_failed", "kind", failure.Kind, "error", err.Error())
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", failure.Kind, failure.Message)), nil
		}

		response := domain.NewAskResponse(result)
		return mcp.NewToolResultStructured(response, formatAnswer(response)), nil
	}
}

func formatAnswer(response domain.AskResponse) string {
	var b strings.Builder
	b.WriteString(response.Answer)
	b.WriteString("\n\n")

	if response.VerificationScore != nil {
		fmt.Fprintf(&b, "Verification score: %.3f (%s)\n", *response.VerificationScore, response.VerificationStatus)
	} else {
		fmt.Fprintf(&b, "Verification score: N/A (%s)\n", response.VerificationStatus)
	}

	if len(response.Sources) == 0 {
		return b.String()
	}
	b.WriteString("\nSources:\n")
	for _, source := range response.Sources {
		fmt.Fprintf(&b, "[%d] %s\n", source.Index, source.URL)
	}
	return b.String()
}
