package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dayaml-tools/checker/pkg/cli"

	"github.com/spf13/cobra"
)

var mcpConfigFlags struct {
	workspace string
	command   string
	args      string
	name      string
	transport string
}

// validTransports are the server types VS Code accepts in mcp.json.
var validTransports = []string{"stdio", "sse", "streamable-http"}

// mcpServerEntry is one server in .vscode/mcp.json.
type mcpServerEntry struct {
	Type    string   `json:"type"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

func newMCPConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-config",
		Short: "Write .vscode/mcp.json for the MCP tool server",
		Long: `Register the MCP tool server in a workspace's .vscode/mcp.json.

By default the server entry runs this executable with the "mcp" argument.
An executable inside the workspace is written relative to
${workspaceFolder}. Other servers already in mcp.json are kept.

Examples:
  # Register in the current directory
  dayamlchecker mcp-config

  # Use a different command
  dayamlchecker mcp-config --command dayamlchecker --args '["mcp"]'`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runMCPConfig,
	}

	cmd.Flags().StringVar(&mcpConfigFlags.workspace, "workspace", ".", "workspace root")
	cmd.Flags().StringVar(&mcpConfigFlags.command, "command", "", "command that runs the MCP server (default: this executable)")
	cmd.Flags().StringVar(&mcpConfigFlags.args, "args", "", `JSON array of command arguments (default: ["mcp"] for this executable)`)
	cmd.Flags().StringVar(&mcpConfigFlags.name, "name", "dayamlchecker", "server name in mcp.json")
	cmd.Flags().StringVar(&mcpConfigFlags.transport, "transport", "stdio", "transport type: "+strings.Join(validTransports, ", "))
	return cmd
}

func runMCPConfig(cmd *cobra.Command, args []string) error {
	if !isValidTransport(mcpConfigFlags.transport) {
		return usageError(fmt.Errorf("invalid transport %q: must be one of %s", mcpConfigFlags.transport, strings.Join(validTransports, ", ")))
	}

	workspace, err := filepath.Abs(mcpConfigFlags.workspace)
	if err != nil {
		return cli.NewCommandError("mcp-config", err)
	}
	if info, err := os.Stat(workspace); err != nil || !info.IsDir() {
		return usageError(fmt.Errorf("workspace root not found: %s", workspace))
	}

	entry, err := serverEntry(workspace)
	if err != nil {
		return err
	}

	path := filepath.Join(workspace, ".vscode", "mcp.json")
	if err := writeMCPConfig(path, mcpConfigFlags.name, entry); err != nil {
		return cli.NewCommandError("mcp-config", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, " - Open the project in VS Code. The MCP server starts when a tool is first used.")
	return nil
}

// serverEntry builds the mcp.json entry from the flags.
func serverEntry(workspace string) (mcpServerEntry, error) {
	entry := mcpServerEntry{Type: mcpConfigFlags.transport, Command: mcpConfigFlags.command}

	if entry.Command == "" {
		exe, err := os.Executable()
		if err != nil {
			return entry, cli.NewCommandError("mcp-config", fmt.Errorf("cannot locate executable, pass --command: %w", err))
		}
		entry.Command = exe
		entry.Args = []string{"mcp"}
	}
	if mcpConfigFlags.args != "" {
		if err := json.Unmarshal([]byte(mcpConfigFlags.args), &entry.Args); err != nil {
			return entry, usageError(fmt.Errorf("--args must be a JSON array of strings: %w", err))
		}
	}

	if rel, err := filepath.Rel(workspace, entry.Command); err == nil && filepath.IsAbs(entry.Command) && !strings.HasPrefix(rel, "..") {
		entry.Command = "${workspaceFolder}/" + filepath.ToSlash(rel)
	}
	return entry, nil
}

// writeMCPConfig sets servers[name] in the mcp.json at path, keeping the
// rest of an existing file.
func writeMCPConfig(path, name string, entry mcpServerEntry) error {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("existing %s is not valid JSON: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	servers, _ := doc["servers"].(map[string]any)
	if servers == nil {
		servers = map[string]any{}
	}
	servers[name] = entry
	doc["servers"] = servers

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

func isValidTransport(t string) bool {
	for _, v := range validTransports {
		if t == v {
			return true
		}
	}
	return false
}
