// Package facet implements the text-processing primitives the FACET MCP
// server exposes to agents: {{variable}} template substitution, the lens
// chain (atomic text transformations) and the execution seam to the FACET
// document engine. Document parsing itself is an external collaborator; the
// Engine treats it as an opaque function injected at construction time.
package facet

import (
	"context"
	"fmt"
	"time"
)

// serverSignature is stamped into the _meta block of execution results.
const serverSignature = "FACET MCP Server v0.1.0"

// DocumentError reports a failure from the document engine or from preparing
// its input. It is always surfaced inside a tool result, never as a
// transport-level error.
type DocumentError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("document error: %s", e.Message)
}

// Unwrap exposes the underlying engine error, if any.
func (e *DocumentError) Unwrap() error { return e.Err }

// ExecuteFunc parses and executes a FACET document, returning its canonical
// JSON-shaped result. Implementations may block; they receive the caller's
// context for cancellation.
type ExecuteFunc func(ctx context.Context, source string) (map[string]any, error)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// MaxTemplateVariables caps the number of variables accepted per
	// execution. Zero means unlimited.
	MaxTemplateVariables int
}

// Engine executes FACET documents: it applies template substitution to the
// source, delegates to the injected document executor and decorates the
// result with execution metadata. An Engine has no mutable state after
// construction and is safe for concurrent use.
type Engine struct {
	exec ExecuteFunc
	opts EngineOptions
}

// NewEngine builds an Engine around the given document executor.
func NewEngine(exec ExecuteFunc, optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{exec: exec, opts: opts}
}

// Execute runs a complete FACET document. When variables are provided they
// are substituted into the source first. The returned map carries the
// executor's result plus a _meta block with timing and server identity.
//
// Failures are returned as *DocumentError so callers can report them as
// structured tool failures rather than transport errors.
func (e *Engine) Execute(ctx context.Context, source string, variables map[string]any) (map[string]any, error) {
	start := time.Now()

	if len(variables) > 0 {
		if e.opts.MaxTemplateVariables > 0 && len(variables) > e.opts.MaxTemplateVariables {
			return nil, &DocumentError{Message: fmt.Sprintf("too many template variables: %d (max %d)", len(variables), e.opts.MaxTemplateVariables)}
		}
		source = Substitute(source, variables)
	}

	if e.exec == nil {
		return nil, &DocumentError{Message: "no document executor configured"}
	}

	result, err := e.exec(ctx, source)
	if err != nil {
		if docErr, ok := err.(*DocumentError); ok {
			return nil, docErr
		}
		return nil, &DocumentError{Message: "execution failed", Err: err}
	}

	// Copy before decorating so executors can safely return shared maps.
	out := make(map[string]any, len(result)+1)
	for k, v := range result {
		out[k] = v
	}
	out["_meta"] = map[string]any{
		"execution_time_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		"server":            serverSignature,
	}
	return out, nil
}
