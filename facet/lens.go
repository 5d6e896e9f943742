package facet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LensError reports a failure while parsing or applying a single lens in a
// chain. Lens carries the offending spec exactly as the caller wrote it.
type LensError struct {
	Lens    string
	Message string
}

// Error implements the error interface.
func (e *LensError) Error() string {
	return fmt.Sprintf("lens %q: %s", e.Lens, e.Message)
}

// lensFunc applies one text transformation. arg is nil for lenses invoked
// without a parameter.
type lensFunc func(text string, arg *int) (string, error)

// builtinLenses is the closed set of lens implementations. The table is
// populated once and never mutated afterwards, so lookups need no locking.
var builtinLenses = map[string]lensFunc{
	"trim":               lensTrim,
	"dedent":             lensDedent,
	"squeeze_spaces":     lensSqueezeSpaces,
	"normalize_newlines": lensNormalizeNewlines,
	"json_minify":        lensJSONMinify,
	"json_parse":         lensJSONParse,
	"strip_markdown":     lensStripMarkdown,
	"limit":              lensLimit,
}

// LensNames returns the names of all built-in lenses in a stable order.
func LensNames() []string {
	return []string{
		"trim",
		"dedent",
		"squeeze_spaces",
		"normalize_newlines",
		"json_minify",
		"json_parse",
		"strip_markdown",
		"limit",
	}
}

// ParseLensSpec splits a lens spec into its name and optional argument.
//
// The textual convention is "name" or "name(arg)" where arg is a single
// integer, e.g. "limit(100)". Lenses taking multiple or non-integer arguments
// are deliberately unsupported; such specs fail with a *LensError rather than
// being half-interpreted.
func ParseLensSpec(spec string) (string, *int, error) {
	open := strings.Index(spec, "(")
	if open < 0 {
		return spec, nil, nil
	}
	if !strings.HasSuffix(spec, ")") {
		return "", nil, &LensError{Lens: spec, Message: "malformed lens parameters"}
	}
	name := spec[:open]
	argStr := strings.TrimSpace(spec[open+1 : len(spec)-1])
	if argStr == "" {
		return name, nil, nil
	}
	arg, err := strconv.Atoi(argStr)
	if err != nil {
		return "", nil, &LensError{Lens: spec, Message: fmt.Sprintf("unsupported lens arguments: %s", argStr)}
	}
	return name, &arg, nil
}

// ApplyLens applies a single lens spec to text.
func ApplyLens(text, spec string) (string, error) {
	name, arg, err := ParseLensSpec(spec)
	if err != nil {
		return "", err
	}
	fn, ok := builtinLenses[name]
	if !ok {
		return "", &LensError{Lens: spec, Message: "unknown lens"}
	}
	out, err := fn(text, arg)
	if err != nil {
		if lensErr, ok := err.(*LensError); ok {
			return "", lensErr
		}
		return "", &LensError{Lens: spec, Message: err.Error()}
	}
	return out, nil
}

// ApplyLenses applies each lens spec in order, left to right, feeding the
// output of one lens into the next. The first failing lens aborts the chain.
func ApplyLenses(text string, specs []string) (string, error) {
	result := text
	for _, spec := range specs {
		out, err := ApplyLens(result, spec)
		if err != nil {
			return "", err
		}
		result = out
	}
	return result, nil
}

func lensTrim(text string, _ *int) (string, error) {
	return strings.TrimSpace(text), nil
}

// lensDedent removes the longest common leading whitespace from every
// non-blank line.
func lensDedent(text string, _ *int) (string, error) {
	lines := strings.Split(text, "\n")
	margin := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		margin = commonPrefix(margin, indent)
	}
	if margin == "" {
		return text, nil
	}
	for i, line := range lines {
		if strings.HasPrefix(line, margin) {
			lines[i] = line[len(margin):]
		} else if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n"), nil
}

func commonPrefix(a, b string) string {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return a[:i]
}

var spaceRuns = regexp.MustCompile(`[ \t]+`)

func lensSqueezeSpaces(text string, _ *int) (string, error) {
	return spaceRuns.ReplaceAllString(text, " "), nil
}

func lensNormalizeNewlines(text string, _ *int) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

func lensJSONMinify(text string, _ *int) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return "", fmt.Errorf("input is not valid JSON: %v", err)
	}
	return buf.String(), nil
}

// lensJSONParse validates the input as JSON and re-serializes it in canonical
// compact form with sorted object keys.
func lensJSONParse(text string, _ *int) (string, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return "", fmt.Errorf("input is not valid JSON: %v", err)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var (
	mdCodeFence = regexp.MustCompile("(?m)^```[^\n]*$\n?")
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdBold      = regexp.MustCompile(`(\*\*|__)(.*?)(\*\*|__)`)
	mdItalic    = regexp.MustCompile(`(\*|_)([^*_]+)(\*|_)`)
	mdCode      = regexp.MustCompile("`([^`]*)`")
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// lensStripMarkdown removes common markdown formatting, keeping the visible
// text: headings, emphasis markers, inline code, code fences and link syntax.
func lensStripMarkdown(text string, _ *int) (string, error) {
	text = mdCodeFence.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBold.ReplaceAllString(text, "$2")
	text = mdItalic.ReplaceAllString(text, "$2")
	text = mdCode.ReplaceAllString(text, "$1")
	return text, nil
}

func lensLimit(text string, arg *int) (string, error) {
	if arg == nil {
		return "", fmt.Errorf("limit requires an integer argument, e.g. limit(100)")
	}
	if *arg < 0 {
		return "", fmt.Errorf("limit argument must be non-negative")
	}
	runes := []rune(text)
	if len(runes) <= *arg {
		return text, nil
	}
	return string(runes[:*arg]), nil
}
