// Package tool implements the tool subsystem of the FACET MCP server: the
// Tool interface, the immutable Registry used for dispatch and capability
// discovery, and the three baseline tools (execute, apply_lenses,
// validate_schema) agents call over the wire.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/internal/util"
	"github.com/rokoss21/FACET-mcp/schema"
)

// Tool is a named, schema-described operation an agent may invoke.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Report domain failures as errors rather than panicking
//   - Be safe for concurrent use; dispatch runs tools from many connections
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to agents so they can decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with the given arguments. The returned map is
	// the tool's result payload; a non-nil error marks the call as failed
	// and is reported inside the tool result, never as a transport error.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// ErrorType names the taxonomy class of a tool failure for the error_type
// field of a failed tool result.
func ErrorType(err error) string {
	var (
		docErr    *facet.DocumentError
		lensErr   *facet.LensError
		schemaErr *schema.SchemaError
		valErr    *util.ValidationError
		toolErr   *ToolError
	)
	switch {
	case errors.As(err, &docErr):
		return "DocumentError"
	case errors.As(err, &lensErr):
		return "LensError"
	case errors.As(err, &schemaErr):
		return "SchemaError"
	case errors.As(err, &valErr):
		return "ValidationError"
	case errors.As(err, &toolErr):
		if toolErr.Code != "" {
			return toolErr.Code
		}
		return "ToolError"
	default:
		return "ExecutionError"
	}
}
