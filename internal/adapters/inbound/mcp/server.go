package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdidvp/luaguard/internal/application"
	"github.com/abdidvp/luaguard/internal/domain"
)

// NewLuaguardMCPServer creates an MCP server exposing the validation engine
// as tools and the rule catalogue and request schema as resources.
func NewLuaguardMCPServer(engine *application.ValidationService, rs *domain.RuleSet, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"luaguard",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, engine, rs)
	registerResources(s, rs)

	return s
}
