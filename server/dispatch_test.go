package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/protocol"
	"github.com/rokoss21/FACET-mcp/schema"
	"github.com/rokoss21/FACET-mcp/tool"
)

func testDispatcher(t *testing.T, tools ...tool.Tool) *Dispatcher {
	t.Helper()
	if len(tools) == 0 {
		engine := facet.NewEngine(func(_ context.Context, source string) (map[string]any, error) {
			return map[string]any{"source": source}, nil
		})
		tools = []tool.Tool{
			tool.NewExecuteTool(engine, logging.NoOpLogger{}),
			tool.NewApplyLensesTool(logging.NoOpLogger{}),
			tool.NewValidateSchemaTool(schema.NewValidator(), logging.NoOpLogger{}),
		}
	}
	registry, err := tool.NewRegistry(tools...)
	require.NoError(t, err)
	return NewDispatcher(registry, logging.NoOpLogger{}, 0)
}

func TestHandleToolCallEchoesCallID(t *testing.T) {
	d := testDispatcher(t)

	resp := d.Handle(context.Background(), protocol.NewToolCall("apply_lenses", map[string]any{
		"input_string": "  hi  ",
		"lenses":       []any{"trim"},
	}, "call-123"))

	assert.Equal(t, protocol.MessageTypeToolResult, resp.Type)
	assert.Equal(t, "call-123", resp.Data["tool_call_id"])
	assert.Equal(t, "call-123", resp.ID)
	assert.Equal(t, true, resp.Data["success"])

	result := resp.Data["result"].(map[string]any)
	assert.Equal(t, "hi", result["result"])
}

func TestHandleUnknownToolListsAvailable(t *testing.T) {
	d := testDispatcher(t)

	resp := d.Handle(context.Background(), protocol.NewToolCall("nope", nil, "c1"))

	assert.Equal(t, protocol.MessageTypeError, resp.Type)
	assert.Contains(t, resp.Data["error"], "nope")
	assert.Equal(t, []string{"execute", "apply_lenses", "validate_schema"}, resp.Data["available_tools"])
}

func TestHandleToolFailureIsToolResult(t *testing.T) {
	d := testDispatcher(t)

	// Unknown lens fails inside the handler; the response must be a
	// tool_result with success=false, never a transport error.
	resp := d.Handle(context.Background(), protocol.NewToolCall("apply_lenses", map[string]any{
		"input_string": "x",
		"lenses":       []any{"sparkle"},
	}, "c2"))

	require.Equal(t, protocol.MessageTypeToolResult, resp.Type)
	assert.Equal(t, false, resp.Data["success"])
	assert.Equal(t, "c2", resp.Data["tool_call_id"])

	failure := resp.Data["result"].(map[string]any)
	assert.Equal(t, false, failure["success"])
	assert.Equal(t, "LensError", failure["error_type"])
	assert.Contains(t, failure["error"], "sparkle")
}

func TestHandleListTools(t *testing.T) {
	d := testDispatcher(t)

	resp := d.Handle(context.Background(), protocol.NewListTools())

	require.Equal(t, protocol.MessageTypeToolsList, resp.Type)
	tools := resp.Data["tools"].([]map[string]any)
	require.Len(t, tools, 3)
	assert.Equal(t, "execute", tools[0]["name"])
	for _, entry := range tools {
		assert.Contains(t, entry, "description")
		assert.Contains(t, entry, "parameters")
		_, hasHandler := entry["handler"]
		assert.False(t, hasHandler)
	}
}

func TestHandlePing(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), protocol.NewPing())
	assert.Equal(t, protocol.MessageTypePong, resp.Type)
}

func TestHandleUnknownType(t *testing.T) {
	d := testDispatcher(t)

	resp := d.Handle(context.Background(), &protocol.Message{Type: "telepathy", Data: map[string]any{}})

	assert.Equal(t, protocol.MessageTypeError, resp.Type)
	assert.Contains(t, resp.Data["error"], "telepathy")
}

type panicTool struct{}

func (panicTool) Name() string               { return "panic" }
func (panicTool) Description() string        { return "always panics" }
func (panicTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (panicTool) Call(context.Context, map[string]any) (map[string]any, error) {
	panic("kaboom")
}

func TestHandleToolPanicIsContained(t *testing.T) {
	d := testDispatcher(t, panicTool{})

	resp := d.Handle(context.Background(), protocol.NewToolCall("panic", nil, "c3"))

	require.Equal(t, protocol.MessageTypeToolResult, resp.Type)
	assert.Equal(t, false, resp.Data["success"])
	failure := resp.Data["result"].(map[string]any)
	assert.Contains(t, failure["error"], "kaboom")
}

func TestHandleValidateSchemaRequiredProperty(t *testing.T) {
	d := testDispatcher(t)

	resp := d.Handle(context.Background(), protocol.NewToolCall("validate_schema", map[string]any{
		"json_object": map[string]any{},
		"json_schema": map[string]any{"type": "object", "required": []any{"name"}},
	}, "c4"))

	require.Equal(t, protocol.MessageTypeToolResult, resp.Type)
	assert.Equal(t, true, resp.Data["success"])

	result := resp.Data["result"].(map[string]any)
	assert.Equal(t, false, result["valid"])
	errs := result["errors"].([]string)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "name")
}
