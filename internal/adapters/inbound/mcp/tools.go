package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdidvp/luaguard/internal/adapters/inbound/schema"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/export"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/application"
	"github.com/abdidvp/luaguard/internal/domain"
)

// registerTools registers all luaguard MCP tools on the given server.
func registerTools(s *server.MCPServer, engine *application.ValidationService, rs *domain.RuleSet) {
	// 1. luaguard_validate
	s.AddTool(
		mcplib.NewTool("luaguard_validate",
			mcplib.WithDescription("Validate one Luau script and return its comprehensive report"),
			mcplib.WithString("scriptCode",
				mcplib.Required(),
				mcplib.Description("Luau source text"),
			),
			mcplib.WithString("scriptName",
				mcplib.Description("Name shown in the report"),
			),
			mcplib.WithString("validationType",
				mcplib.Description("Checkers to run: syntax, security, quality, compliance, educational or comprehensive (default)"),
			),
			mcplib.WithString("gradeLevel",
				mcplib.Description("Audience grade level: elementary, middle_school, high_school or college"),
			),
			mcplib.WithString("subject",
				mcplib.Description("Curriculum subject, e.g. math or computer_science"),
			),
			mcplib.WithArray("learningObjectives",
				mcplib.Description("Learning objectives the script should address"),
				mcplib.Items(map[string]any{"type": "string"}),
			),
			mcplib.WithBoolean("strictMode",
				mcplib.Description("Escalate community-standards findings"),
			),
			mcplib.WithBoolean("includeSuggestions",
				mcplib.Description("Include remediation suggestions in findings"),
			),
			mcplib.WithString("format",
				mcplib.Description("Output format: json (default), text or sarif"),
			),
		),
		handleValidate(engine),
	)

	// 2. luaguard_batch_validate
	s.AddTool(
		mcplib.NewTool("luaguard_batch_validate",
			mcplib.WithDescription("Validate several scripts at once; items are returned in input order"),
			mcplib.WithString("requests",
				mcplib.Required(),
				mcplib.Description("JSON array of validation requests, each shaped like the luaguard_validate arguments"),
			),
			mcplib.WithString("format",
				mcplib.Description("Output format: json (default), text or sarif"),
			),
		),
		handleBatchValidate(engine),
	)

	// 3. luaguard_rules
	s.AddTool(
		mcplib.NewTool("luaguard_rules",
			mcplib.WithDescription("List the rules the checkers apply"),
			mcplib.WithString("section",
				mcplib.Description("Only list one section: syntax, security, guards, content or policies"),
			),
		),
		handleRules(rs),
	)
}

func handleValidate(engine *application.ValidationService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		if _, err := request.RequireString("scriptCode"); err != nil {
			return errorResult(err.Error()), nil
		}
		format, err := export.ParseFormat(request.GetString("format", string(export.FormatJSON)))
		if err != nil {
			return errorResult(err.Error()), nil
		}

		// The remaining arguments are a request; run them through the schema
		// so tool calls and JSON batches are checked the same way.
		fields := make(map[string]any)
		for k, v := range request.GetArguments() {
			if k != "format" {
				fields[k] = v
			}
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return errorResult(fmt.Sprintf("encoding arguments: %v", err)), nil
		}
		req, err := schema.DecodeRequest(data)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		report, err := engine.Validate(ctx, req)
		if err != nil {
			return errorResult(fmt.Sprintf("validation failed: %v", err)), nil
		}
		out, err := export.Report(report, format)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult(string(out)), nil
	}
}

func handleBatchValidate(engine *application.ValidationService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		raw, err := request.RequireString("requests")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		format, err := export.ParseFormat(request.GetString("format", string(export.FormatJSON)))
		if err != nil {
			return errorResult(err.Error()), nil
		}

		decoded, err := schema.DecodeBatch([]byte(raw))
		if err != nil {
			return errorResult(err.Error()), nil
		}

		batch := application.Reassemble(decoded.Size, decoded.Index,
			engine.BatchValidate(ctx, decoded.Requests), decoded.Rejected)
		out, err := export.Batch(batch, format)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult(string(out)), nil
	}
}

func handleRules(rs *domain.RuleSet) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		section := request.GetString("section", "")
		entries := []rules.Entry{}
		for _, e := range rules.Catalogue(rs) {
			if section == "" || e.Section == section {
				entries = append(entries, e)
			}
		}
		return jsonResult(entries)
	}
}

// jsonResult marshals v to indented JSON and returns it as text content.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// textResult returns a plain text content result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
