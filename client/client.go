// Package client provides a WebSocket client for the FACET MCP server, used
// by agents and by the project's own tests. The client follows the protocol's
// strict request/response pairing: each Send writes one envelope and waits
// for the single response addressed to it.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rokoss21/FACET-mcp/protocol"
)

// Client is a connection to one FACET MCP server. Methods are safe for
// concurrent use; requests are serialized on the underlying socket.
type Client struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// Dial connects to a server's WebSocket endpoint (e.g. "ws://host:port/ws").
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to MCP server: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &Client{ws: ws}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// Send writes one envelope and waits for the server's response to it. The
// context deadline, when set, bounds both the write and the read.
func (c *Client) Send(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	raw, err := protocol.Encode(msg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, respRaw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return protocol.Decode(respRaw)
}

// CallTool invokes a named tool and unwraps its result payload. A generated
// call id correlates the request with its tool_result; failed calls
// (success=false) and error envelopes are surfaced as errors.
func (c *Client) CallTool(ctx context.Context, name string, parameters map[string]any) (map[string]any, error) {
	callID := uuid.NewString()
	resp, err := c.Send(ctx, protocol.NewToolCall(name, parameters, callID))
	if err != nil {
		return nil, err
	}

	switch resp.Type {
	case protocol.MessageTypeToolResult:
		if success, _ := resp.Data["success"].(bool); !success {
			errMsg, _ := resp.Data["error"].(string)
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return nil, fmt.Errorf("tool execution failed: %s", errMsg)
		}
		result, _ := resp.Data["result"].(map[string]any)
		return result, nil
	case protocol.MessageTypeError:
		errMsg, _ := resp.Data["error"].(string)
		return nil, fmt.Errorf("server error: %s", errMsg)
	default:
		return nil, fmt.Errorf("unexpected response type: %s", resp.Type)
	}
}

// ListTools fetches the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.Send(ctx, protocol.NewListTools())
	if err != nil {
		return nil, err
	}
	if resp.Type != protocol.MessageTypeToolsList {
		return nil, fmt.Errorf("unexpected response type: %s", resp.Type)
	}

	rawTools, _ := resp.Data["tools"].([]any)
	tools := make([]map[string]any, 0, len(rawTools))
	for _, raw := range rawTools {
		if t, ok := raw.(map[string]any); ok {
			tools = append(tools, t)
		}
	}
	return tools, nil
}

// Ping sends an application-level ping and waits for the pong.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Send(ctx, protocol.NewPing())
	if err != nil {
		return err
	}
	if resp.Type != protocol.MessageTypePong {
		return fmt.Errorf("unexpected response type: %s", resp.Type)
	}
	return nil
}
