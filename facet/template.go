package facet

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Substitute replaces {{name}} placeholders in source with the caller's
// variable values. Strings pass through unchanged, booleans and numbers
// render as their literal text form and structured values (maps, slices)
// render as compact JSON. Placeholders without a matching variable are left
// verbatim.
//
// Keys are applied in sorted order so the result is deterministic for a fixed
// input. Substitution is single-pass: values containing {{...}} markers are
// not expanded again.
func Substitute(source string, variables map[string]any) string {
	if len(variables) == 0 || !strings.Contains(source, "{{") {
		return source
	}

	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := source
	for _, key := range keys {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, renderValue(variables[key]))
	}
	return result
}

// renderValue produces the canonical text form of a template variable.
func renderValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		raw, err := json.Marshal(v)
		if err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
