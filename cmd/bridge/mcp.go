package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jenkins-mcp-integ/internal/mcptools"
)

// Version is set at build time via ldflags.
var Version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the MCP protocol; logs go to stderr.
		app, err := buildCore(os.Stderr)
		if err != nil {
			return err
		}

		s := server.NewMCPServer(
			"jenkins-bridge",
			Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		)

		tools := mcptools.New(app.dispatcher,
			app.logger.With(slog.String("component", "mcp_tools")))
		tools.Register(s)

		app.logger.Info("mcp server listening on stdio")
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}
