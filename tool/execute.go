package tool

import (
	"context"
	"time"

	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/internal/util"
	"github.com/rokoss21/FACET-mcp/logging"
)

// ExecuteTool runs complete FACET documents through the execution engine,
// applying template substitution to the source when variables are supplied.
// This is the primary tool for complex, multi-step data processing.
type ExecuteTool struct {
	engine *facet.Engine
	logger logging.Logger
}

// NewExecuteTool builds the execute tool around an engine.
func NewExecuteTool(engine *facet.Engine, logger logging.Logger) *ExecuteTool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ExecuteTool{engine: engine, logger: logger}
}

// Name returns the unique tool name used in tool calls and routing.
func (t *ExecuteTool) Name() string { return "execute" }

// Description returns the short description exposed to agents.
func (t *ExecuteTool) Description() string {
	return "Executes a complete FACET document. Use for complex multi-step pipelines with input processing, transformations, and output contracts."
}

// Parameters returns the JSON schema describing expected arguments.
func (t *ExecuteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"facet_source": map[string]any{
				"type":        "string",
				"description": "Complete FACET document text to execute",
			},
			"variables": map[string]any{
				"type":                 "object",
				"description":          "Optional variables for template substitution",
				"additionalProperties": true,
			},
		},
		"required": []string{"facet_source"},
	}
}

// Call validates the arguments, executes the document and returns the result
// payload. Engine failures come back as *facet.DocumentError and are reported
// by dispatch inside the tool result.
func (t *ExecuteTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	source, _ := args["facet_source"].(string)
	variables, _ := args["variables"].(map[string]any)

	result, err := t.engine.Execute(ctx, source, variables)
	if err != nil {
		t.logger.Error("tool.call.error", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	executionTime, _ := metaExecutionTime(result)
	t.logger.Info("tool.call.success", "tool", t.Name(), "duration_ms", time.Since(start).Milliseconds())
	return map[string]any{
		"success":           true,
		"result":            result,
		"execution_time_ms": executionTime,
	}, nil
}

func metaExecutionTime(result map[string]any) (float64, bool) {
	meta, ok := result["_meta"].(map[string]any)
	if !ok {
		return 0, false
	}
	ms, ok := meta["execution_time_ms"].(float64)
	return ms, ok
}
