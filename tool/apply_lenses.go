package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/internal/util"
	"github.com/rokoss21/FACET-mcp/logging"
)

// ApplyLensesOptions configures the apply_lenses tool.
type ApplyLensesOptions struct {
	// AllowedLenses restricts which lens names may appear in a chain.
	// Empty means every built-in lens is allowed.
	AllowedLenses []string
	// MaxChainLength caps the number of lenses per call. Zero means no cap.
	MaxChainLength int
}

// ApplyLensesTool applies a chain of named text transformations, left to
// right. Lens specs use the textual convention "name" or "name(arg)" with a
// single integer argument, e.g. "limit(100)".
type ApplyLensesTool struct {
	allowed map[string]bool
	opts    ApplyLensesOptions
	logger  logging.Logger
}

// NewApplyLensesTool builds the apply_lenses tool.
func NewApplyLensesTool(logger logging.Logger, optFns ...func(o *ApplyLensesOptions)) *ApplyLensesTool {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	opts := ApplyLensesOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	var allowed map[string]bool
	if len(opts.AllowedLenses) > 0 {
		allowed = make(map[string]bool, len(opts.AllowedLenses))
		for _, name := range opts.AllowedLenses {
			allowed[name] = true
		}
	}
	return &ApplyLensesTool{allowed: allowed, opts: opts, logger: logger}
}

// Name returns the unique tool name used in tool calls and routing.
func (t *ApplyLensesTool) Name() string { return "apply_lenses" }

// Description returns the short description exposed to agents.
func (t *ApplyLensesTool) Description() string {
	return "Applies one or more FACET lenses to input text. Use for atomic, reliable text transformations like trimming, dedenting, or squeezing spaces."
}

// Parameters returns the JSON schema describing expected arguments.
func (t *ApplyLensesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_string": map[string]any{
				"type":        "string",
				"description": "Text to process with lenses",
			},
			"lenses": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "List of lenses to apply (e.g., ['dedent', 'trim', 'limit(100)'])",
			},
		},
		"required": []string{"input_string", "lenses"},
	}
}

// Call validates the arguments and applies the lens chain. A failing lens
// aborts the chain with a *facet.LensError naming the offending lens.
func (t *ApplyLensesTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	input, _ := args["input_string"].(string)
	specs, err := lensSpecs(args["lenses"])
	if err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	if err := t.checkChain(specs); err != nil {
		t.logger.Warn("tool.call.rejected", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	result, err := facet.ApplyLenses(input, specs)
	if err != nil {
		t.logger.Error("tool.call.error", "tool", t.Name(), "error", err.Error())
		return nil, err
	}

	t.logger.Info("tool.call.success", "tool", t.Name(), "duration_ms", time.Since(start).Milliseconds())
	return map[string]any{
		"success":        true,
		"result":         result,
		"applied_lenses": specs,
		"input_length":   len(input),
		"output_length":  len(result),
	}, nil
}

// checkChain enforces the configured lens allowlist and chain length cap.
func (t *ApplyLensesTool) checkChain(specs []string) error {
	if t.opts.MaxChainLength > 0 && len(specs) > t.opts.MaxChainLength {
		return NewToolError(t.Name(),
			fmt.Sprintf("lens chain too long: %d (max %d)", len(specs), t.opts.MaxChainLength),
			"VALIDATION_ERROR")
	}
	if t.allowed == nil {
		return nil
	}
	for _, spec := range specs {
		name, _, err := facet.ParseLensSpec(spec)
		if err != nil {
			return err
		}
		if !t.allowed[name] {
			return &facet.LensError{Lens: spec, Message: "lens is not allowed on this server"}
		}
	}
	return nil
}

// lensSpecs coerces the wire value of the lenses argument into a string
// slice. JSON decoding yields []any; tests and embedded callers may pass
// []string directly.
func lensSpecs(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		specs := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &util.ValidationError{
					Field:   "lenses",
					Value:   item,
					Message: fmt.Sprintf("lens entries must be strings, got %T", item),
				}
			}
			specs = append(specs, s)
		}
		return specs, nil
	default:
		return nil, &util.ValidationError{
			Field:   "lenses",
			Value:   value,
			Message: fmt.Sprintf("expected type array, got %T", value),
		}
	}
}
