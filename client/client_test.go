package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokoss21/FACET-mcp/config"
	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/schema"
	"github.com/rokoss21/FACET-mcp/server"
	"github.com/rokoss21/FACET-mcp/tool"
)

func startServer(t *testing.T) string {
	t.Helper()

	engine := facet.NewEngine(func(_ context.Context, source string) (map[string]any, error) {
		return map[string]any{"source": source}, nil
	})
	registry, err := tool.NewRegistry(
		tool.NewExecuteTool(engine, logging.NoOpLogger{}),
		tool.NewApplyLensesTool(logging.NoOpLogger{}),
		tool.NewValidateSchemaTool(schema.NewValidator(), logging.NoOpLogger{}),
	)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Security.EnableRateLimiting = false
	s := server.New(cfg, registry, logging.NoOpLogger{})

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDialRejectsBadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to MCP server")
}

func TestCallTool(t *testing.T) {
	c := dial(t, startServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := c.CallTool(ctx, "apply_lenses", map[string]any{
		"input_string": "  hello   world  ",
		"lenses":       []any{"trim", "squeeze_spaces"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result["result"])
	assert.Equal(t, true, result["success"])
}

func TestCallToolFailure(t *testing.T) {
	c := dial(t, startServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.CallTool(ctx, "apply_lenses", map[string]any{
		"input_string": "text",
		"lenses":       []any{"no_such_lens"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool execution failed")
	assert.Contains(t, err.Error(), "no_such_lens")
}

func TestCallToolUnknownName(t *testing.T) {
	c := dial(t, startServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.CallTool(ctx, "not_a_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestListTools(t *testing.T) {
	c := dial(t, startServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 3)

	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		name, _ := tl["name"].(string)
		names = append(names, name)
		assert.NotEmpty(t, tl["description"])
		assert.NotNil(t, tl["parameters"])
	}
	assert.Equal(t, []string{"execute", "apply_lenses", "validate_schema"}, names)
}

func TestPing(t *testing.T) {
	c := dial(t, startServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Ping(ctx))
}
