package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

const ServerName = "Blind Auditor"

// NewMCPServer registers the four tools on an MCP server.
func NewMCPServer(h *Handler, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.AddTool(submitDraftTool(), h.handleSubmitDraft)
	s.AddTool(submitAuditResultTool(), h.handleSubmitAuditResult)
	s.AddTool(resetSessionTool(), h.handleResetSession)
	s.AddTool(updateRulesTool(), h.handleUpdateRules)

	return s
}

// ServeStdio serves newline-delimited JSON-RPC from in to out until ctx is
// cancelled or in is exhausted.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(stdlog.New(log.Logger, "", 0))

	log.Info().Msg("serving MCP over stdio")

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func submitDraftTool() mcp.Tool {
	return mcp.NewTool(ToolSubmitDraft,
		mcp.WithDescription("Submit a code draft for blind audit. Returns the audit instructions, or the final rejection report once the retry limit is reached."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("The candidate code to audit"),
		),
		mcp.WithString("language",
			mcp.DefaultString("python"),
			mcp.Description("Language of the code, used for the code fence"),
		),
	)
}

func submitAuditResultTool() mcp.Tool {
	return mcp.NewTool(ToolSubmitAuditResult,
		mcp.WithDescription("Submit the audit verdict for the current draft. A score below 80 never passes."),
		mcp.WithBoolean("passed",
			mcp.Required(),
			mcp.Description("Whether the draft passes the audit"),
		),
		mcp.WithArray("issues",
			mcp.Required(),
			mcp.Description("Violations found, one entry per issue"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("score",
			mcp.DefaultNumber(0),
			mcp.Description("Score from 0 to 100"),
		),
	)
}

func resetSessionTool() mcp.Tool {
	return mcp.NewTool(ToolResetSession,
		mcp.WithDescription("Reset the audit session: clears the history and the retry counter."),
	)
}

func updateRulesTool() mcp.Tool {
	return mcp.NewTool(ToolUpdateRules,
		mcp.WithDescription("Manage audit rules: add, remove, update or list."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Enum(ActionAdd, ActionRemove, ActionUpdate, ActionList),
			mcp.Description("Operation to perform"),
		),
		mcp.WithString("rule_id",
			mcp.Description("Rule identifier, required except for list"),
		),
		mcp.WithString("severity",
			mcp.Enum("CRITICAL", "WARNING", "PREFERENCE"),
			mcp.Description("Rule severity"),
		),
		mcp.WithString("description",
			mcp.Description("What the rule checks"),
		),
		mcp.WithNumber("weight",
			mcp.Description("Score deduction from 0 to 100"),
		),
	)
}

func (h *Handler) handleSubmitDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(h.SubmitDraft(ctx, SubmitDraftArgs{
		Code:     code,
		Language: req.GetString("language", ""),
	})), nil
}

func (h *Handler) handleSubmitAuditResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passed, err := req.RequireBool("passed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	score := 0
	if v, ok := req.GetArguments()["score"]; ok && v != nil {
		n, ok := integerValue(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("score must be an integer, got %v", v)), nil
		}
		score = n
	}

	return mcp.NewToolResultText(h.SubmitAuditResult(ctx, AuditResultArgs{
		Passed: passed,
		Issues: req.GetStringSlice("issues", nil),
		Score:  score,
	})), nil
}

func (h *Handler) handleResetSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(h.ResetSession(ctx)), nil
}

func (h *Handler) handleUpdateRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := UpdateRulesArgs{
		Action:      req.GetString("action", ""),
		RuleID:      req.GetString("rule_id", ""),
		Severity:    req.GetString("severity", ""),
		Description: req.GetString("description", ""),
	}
	if v, ok := req.GetArguments()["weight"]; ok && v != nil {
		args.setWeight(v)
	}

	return mcp.NewToolResultText(h.UpdateRules(ctx, args)), nil
}
