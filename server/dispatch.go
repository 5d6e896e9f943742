package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/protocol"
	"github.com/rokoss21/FACET-mcp/tool"
)

// Dispatcher routes inbound envelopes to tool handlers and wraps their
// outcomes into response envelopes. It carries no per-call state and is safe
// for concurrent use from any number of connection loops.
type Dispatcher struct {
	registry       *tool.Registry
	logger         logging.Logger
	requestTimeout time.Duration
}

// NewDispatcher builds a Dispatcher over an immutable tool registry.
// requestTimeout bounds each tool call; zero means calls run until the
// caller's context is cancelled.
func NewDispatcher(registry *tool.Registry, logger logging.Logger, requestTimeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Dispatcher{registry: registry, logger: logger, requestTimeout: requestTimeout}
}

// Handle processes one inbound message and returns the response envelope.
//
// tool_call resolves the named tool and invokes it; handler failures are
// converted into a tool_result with success=false, never into a transport
// error. list_tools enumerates tool metadata. ping answers pong. Anything
// else yields an error envelope naming the unrecognized type.
func (d *Dispatcher) Handle(ctx context.Context, msg *protocol.Message) *protocol.Message {
	switch msg.Type {
	case protocol.MessageTypeToolCall:
		return d.handleToolCall(ctx, msg)
	case protocol.MessageTypeListTools:
		return d.handleListTools()
	case protocol.MessageTypePing:
		return protocol.NewPong()
	default:
		return protocol.NewError(
			fmt.Sprintf("Unknown message type: %s", msg.Type),
			"NotFoundError", nil, nil)
	}
}

func (d *Dispatcher) handleToolCall(ctx context.Context, msg *protocol.Message) *protocol.Message {
	name, _ := msg.Data["name"].(string)
	callID, _ := msg.Data["id"].(string)
	if callID == "" {
		callID = msg.ID
	}

	t, err := d.registry.Resolve(name)
	if err != nil {
		d.logger.Warn("dispatch.unknown_tool", "tool", name)
		return protocol.NewError(
			fmt.Sprintf("Unknown tool: %s", name),
			"NotFoundError", d.registry.Names(), nil)
	}

	parameters, _ := msg.Data["parameters"].(map[string]any)
	if parameters == nil {
		parameters = map[string]any{}
	}

	if d.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.requestTimeout)
		defer cancel()
	}

	result, err := callTool(ctx, t, parameters)
	if err != nil {
		d.logger.Info("dispatch.tool_failed", "tool", name, "call_id", callID, "error", err.Error())
		failure := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": tool.ErrorType(err),
		}
		return protocol.NewToolResult(callID, failure, false, err.Error())
	}

	d.logger.Debug("dispatch.tool_succeeded", "tool", name, "call_id", callID)
	return protocol.NewToolResult(callID, result, true, "")
}

func (d *Dispatcher) handleListTools() *protocol.Message {
	descriptors := d.registry.List()
	tools := make([]map[string]any, 0, len(descriptors))
	for _, desc := range descriptors {
		tools = append(tools, map[string]any{
			"name":        desc.Name,
			"description": desc.Description,
			"parameters":  desc.Parameters,
		})
	}
	return protocol.NewToolsList(tools)
}

// callTool invokes the tool, converting a panic inside the handler into an
// ordinary error so one misbehaving call cannot take down the connection
// loop.
func callTool(ctx context.Context, t tool.Tool, args map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Call(ctx, args)
}
