package mcpadapter

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const askCorpusToolName = "ask_corpus"

func askCorpusTool() mcp.Tool {
	return mcp.NewTool(askCorpusToolName,
		mcp.WithDescription("Answer a question from the indexed corpus. Returns the grounded answer, an entailment verification score and numbered source URLs."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural-language question"),
		),
	)
}
