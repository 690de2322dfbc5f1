// Dayamlchecker validates docassemble interview YAML files.
//
// It checks document structure, block types, field lists and the Python,
// JavaScript and Mako fragments embedded in each block. Files opting in to
// Jinja with a "# use jinja" first line are rendered before checking.
//
// Usage:
//
//	# Check files and directories (directories are searched recursively)
//	dayamlchecker docassemble/MyPackage/data/questions
//
//	# Compact output for CI
//	dayamlchecker --minimal --no-summary questions/
//
//	# Re-check files as they are saved
//	dayamlchecker --watch questions/
//
//	# Serve the HTTP validation API
//	dayamlchecker serve --listen 127.0.0.1:8080
//
//	# Run the MCP tool server on stdin/stdout
//	dayamlchecker mcp
package main

import "os"

func main() {
	os.Exit(Execute())
}
