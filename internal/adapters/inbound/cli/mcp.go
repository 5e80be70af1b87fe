package cli

import (
	mcpadapter "github.com/abdidvp/luaguard/internal/adapters/inbound/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the luaguard MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start luaguard MCP server (stdio)",
		Long:  "Start the luaguard MCP server using stdio transport. This lets AI coding assistants validate the scripts they generate before handing them over.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s := mcpadapter.NewLuaguardMCPServer(e.svc, e.rules, version)
			return server.ServeStdio(s)
		},
	}
}
