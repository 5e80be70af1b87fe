package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdidvp/luaguard/internal/adapters/inbound/schema"
	"github.com/abdidvp/luaguard/internal/adapters/outbound/rules"
	"github.com/abdidvp/luaguard/internal/domain"
)

const rulesSectionPrefix = "luaguard://rules/"

// registerResources registers all luaguard MCP resources on the given server.
func registerResources(s *server.MCPServer, rs *domain.RuleSet) {
	// 1. luaguard://schema/request - request JSON schema
	s.AddResource(
		mcplib.NewResource(
			"luaguard://schema/request",
			"Request Schema",
			mcplib.WithResourceDescription("JSON schema every validation request must satisfy"),
			mcplib.WithMIMEType("application/schema+json"),
		),
		handleSchemaResource,
	)

	// 2. luaguard://rules - full rule catalogue
	s.AddResource(
		mcplib.NewResource(
			"luaguard://rules",
			"Rule Catalogue",
			mcplib.WithResourceDescription("Every rule the checkers apply"),
			mcplib.WithMIMEType("application/json"),
		),
		handleRulesResource(rs),
	)

	// 3. luaguard://rules/{section} - one catalogue section (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			rulesSectionPrefix+"{section}",
			"Rule Section",
			mcplib.WithTemplateDescription("Rules of one section: syntax, security, guards, content or policies"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		server.ResourceTemplateHandlerFunc(handleRulesResource(rs)),
	)
}

func handleSchemaResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/schema+json",
			Text:     string(schema.RequestSchema()),
		},
	}, nil
}

func handleRulesResource(rs *domain.RuleSet) server.ResourceHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		section := strings.TrimPrefix(request.Params.URI, rulesSectionPrefix)
		if section == request.Params.URI {
			section = ""
		}

		entries := []rules.Entry{}
		for _, e := range rules.Catalogue(rs) {
			if section == "" || e.Section == section {
				entries = append(entries, e)
			}
		}
		if section != "" && len(entries) == 0 {
			return nil, fmt.Errorf("unknown rule section %q", section)
		}

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling rules: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
