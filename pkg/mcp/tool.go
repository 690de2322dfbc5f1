package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dayaml-tools/checker/pkg/dayaml"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateToolName is the name of the interview validation tool.
const ValidateToolName = "validate_docassemble_yaml"

const validateToolDescription = "Validate a docassemble interview YAML string. " +
	"Use this whenever you generate or modify docassemble YAML to check for " +
	"structure errors, invalid embedded Python, Mako or JavaScript, and " +
	"line-level issues. Returns {valid, errors}; errors marked experimental " +
	"are heuristic warnings."

var validateInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"yaml_text": map[string]any{
			"type":        "string",
			"description": "The YAML content as a string.",
		},
		"filename": map[string]any{
			"type":        "string",
			"description": "Name to report errors against.",
		},
		"path": map[string]any{
			"type":        "string",
			"minLength":   1,
			"description": "Path of an interview file to read instead of yaml_text.",
		},
	},
	"oneOf": []any{
		map[string]any{"required": []any{"yaml_text"}},
		map[string]any{"required": []any{"path"}},
	},
	"additionalProperties": false,
}

// validateTool checks interviews for the tools/call method.
type validateTool struct {
	checker *dayaml.Checker
	schema  *gojsonschema.Schema
}

func newValidateTool(checker *dayaml.Checker) (*validateTool, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(validateInputSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling %s input schema: %w", ValidateToolName, err)
	}
	return &validateTool{checker: checker, schema: schema}, nil
}

func (t *validateTool) definition() Tool {
	return Tool{
		Name:        ValidateToolName,
		Description: validateToolDescription,
		InputSchema: validateInputSchema,
	}
}

// validateArguments checks args against the input schema and returns every
// violation in one message.
func (t *validateTool) validateArguments(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := t.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

// call runs the tool. Argument problems are returned as errors; findings
// in the interview are a successful result with valid set to false.
func (t *validateTool) call(ctx context.Context, args map[string]any) (*CallResult, error) {
	if err := t.validateArguments(args); err != nil {
		return nil, err
	}

	filename, _ := args["filename"].(string)
	text, _ := args["yaml_text"].(string)
	if path, ok := args["path"].(string); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return textResult(fmt.Sprintf("Error: %v", err), true), nil
		}
		text = string(data)
		if filename == "" {
			filename = path
		}
	}

	report := t.checker.Check(ctx, filename, text).Report()
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	result := textResult(string(data), false)
	result.StructuredContent = report
	return result, nil
}
