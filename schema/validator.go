// Package schema provides JSON Schema validation for the FACET MCP server.
// Compiled validators are memoized per distinct schema content so repeated
// calls with the same schema reuse one compilation for the lifetime of the
// process.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaError reports that a schema itself is invalid. It is distinct from a
// data-validation failure: a bad schema is a caller bug, failing data is a
// normal validation outcome.
type SchemaError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid schema: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("invalid schema: %s", e.Message)
}

// Unwrap exposes the underlying compiler error, if any.
func (e *SchemaError) Unwrap() error { return e.Err }

// Result is the outcome of validating data against a schema. Errors is nil
// when Valid is true.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator compiles schemas (Draft 7, matching the original server) and
// caches the compiled form keyed by canonical schema content. The cache is
// append-only and unbounded; schema variety is bounded by callers.
//
// Validator is safe for concurrent use. Two goroutines racing on the same new
// schema may both compile it, but the first inserted entry wins and is
// returned to everyone afterwards, so compiled identity is stable per schema
// content.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// GetOrCompile returns the compiled validator for the schema, compiling and
// caching it on first sight. The cache key is the JSON serialization of the
// schema; encoding/json sorts object keys, so key ordering in the caller's
// map does not fragment the cache.
func (v *Validator) GetOrCompile(schema map[string]any) (*jsonschema.Schema, error) {
	canonical, err := json.Marshal(schema)
	if err != nil {
		return nil, &SchemaError{Message: "schema is not JSON-serializable", Err: err}
	}
	key := string(canonical)

	v.mu.RLock()
	compiled, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err = compile(key)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.cache[key]; ok {
		// Lost the race; keep the first entry so identity stays stable.
		return existing, nil
	}
	v.cache[key] = compiled
	return compiled, nil
}

// Validate checks data against the schema, compiling (or reusing) its
// validator first. A *SchemaError means the schema is broken; a Result with
// Valid=false means the data does not conform.
func (v *Validator) Validate(data any, schema map[string]any) (*Result, error) {
	compiled, err := v.GetOrCompile(schema)
	if err != nil {
		return nil, err
	}

	normalized, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("data is not JSON-serializable: %w", err)
	}

	if err := compiled.Validate(normalized); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &Result{Valid: false, Errors: []string{err.Error()}}, nil
		}
		var msgs []string
		flatten(ve, &msgs)
		return &Result{Valid: false, Errors: msgs}, nil
	}
	return &Result{Valid: true}, nil
}

// Size reports the number of cached validators.
func (v *Validator) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}

func compile(doc string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("inline://schema.json", strings.NewReader(doc)); err != nil {
		return nil, &SchemaError{Message: "schema rejected by compiler", Err: err}
	}
	compiled, err := compiler.Compile("inline://schema.json")
	if err != nil {
		return nil, &SchemaError{Message: "schema does not compile", Err: err}
	}
	return compiled, nil
}

// normalize round-trips data through JSON so hand-built Go values (ints,
// custom structs) validate the same as decoded wire data.
func normalize(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten collects leaf validation causes as "message at location" strings.
func flatten(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s at %s", ve.Message, loc))
		return
	}
	for _, cause := range ve.Causes {
		flatten(cause, out)
	}
}
