// Package mcp exposes the interview checker as a tool over the Model
// Context Protocol: JSON-RPC 2.0 messages, one per line, on stdin and
// stdout.
//
// The server implements initialize, ping, tools/list and tools/call and
// offers a single tool, validate_docassemble_yaml, taking
//
//	{"yaml_text": "...", "filename": "optional.yml"}
//
// or {"path": "interview.yml"}. Arguments are checked against the tool's
// JSON schema. The result text is the JSON report
//
//	{"valid": false, "errors": [{"message": "...", "line": 3, "filename": "...", "experimental": false, "type": "structural"}]}
package mcp
