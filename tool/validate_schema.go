package tool

import (
	"context"
	"time"

	"github.com/rokoss21/FACET-mcp/internal/util"
	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/schema"
)

// ValidateSchemaTool checks JSON data against a JSON Schema through the
// shared validator cache. Use to ensure data quality before handing results
// to users or other systems.
type ValidateSchemaTool struct {
	validator *schema.Validator
	logger    logging.Logger
}

// NewValidateSchemaTool builds the validate_schema tool around a shared
// validator cache.
func NewValidateSchemaTool(validator *schema.Validator, logger logging.Logger) *ValidateSchemaTool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ValidateSchemaTool{validator: validator, logger: logger}
}

// Name returns the unique tool name used in tool calls and routing.
func (t *ValidateSchemaTool) Name() string { return "validate_schema" }

// Description returns the short description exposed to agents.
func (t *ValidateSchemaTool) Description() string {
	return "Validates JSON data against a JSON Schema. Use to ensure data quality and format correctness before returning results to users."
}

// Parameters returns the JSON schema describing expected arguments.
func (t *ValidateSchemaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"json_object": map[string]any{
				"description": "JSON value to validate",
			},
			"json_schema": map[string]any{
				"type":        "object",
				"description": "JSON Schema to validate against",
			},
		},
		"required": []string{"json_object", "json_schema"},
	}
}

// Call validates the arguments and runs schema validation. A broken schema
// surfaces as *schema.SchemaError; non-conforming data is a successful call
// with valid=false and the validation errors listed.
func (t *ValidateSchemaTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	data := args["json_object"]
	schemaMap, ok := args["json_schema"].(map[string]any)
	if !ok {
		err := &util.ValidationError{Field: "json_schema", Value: args["json_schema"], Message: "expected type object"}
		t.logger.Warn("tool.call.validation_failed", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	result, err := t.validator.Validate(data, schemaMap)
	if err != nil {
		t.logger.Error("tool.call.error", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	payload := map[string]any{
		"success": true,
		"valid":   result.Valid,
	}
	if result.Valid {
		payload["errors"] = nil
	} else {
		payload["errors"] = result.Errors
	}

	t.logger.Info("tool.call.success", "tool", t.Name(),
		"valid", result.Valid, "duration_ms", time.Since(start).Milliseconds())
	return payload, nil
}
