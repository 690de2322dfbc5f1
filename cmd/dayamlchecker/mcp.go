package main

import (
	"dayaml-tools/checker/pkg/cli"
	"dayaml-tools/checker/pkg/mcp"

	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdin and stdout",
		Long: `Run a Model Context Protocol server speaking line-delimited JSON-RPC on
stdin and stdout. It offers one tool, validate_docassemble_yaml, which checks
interview text passed as yaml_text (or a file passed as path) and returns
{"valid": bool, "errors": [{"message", "line", "filename", ...}]}.

Logs are written to stderr so they never mix with protocol messages.

Use "dayamlchecker mcp-config" to register the server with VS Code.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(a.checker, Version,
		mcp.WithLogger(a.logger),
		mcp.WithMetrics(a.collector),
	)
	if err != nil {
		return cli.NewCommandError("mcp", err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a.logger.Info("mcp server started", "version", Version)
	if err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("mcp", err)
	}
	return nil
}
