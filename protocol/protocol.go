// Package protocol defines the wire envelope exchanged between agents and the
// FACET MCP server. Every frame on a connection is a single Message: a type
// tag, a type-specific data payload and an optional correlation id. The
// package provides the codec (Decode / Encode) plus constructors for the
// message shapes the server and clients emit.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates the interpretation of a Message's Data payload.
type MessageType string

const (
	// MessageTypeToolCall requests execution of a named tool.
	MessageTypeToolCall MessageType = "tool_call"
	// MessageTypeToolResult carries the outcome of a tool call.
	MessageTypeToolResult MessageType = "tool_result"
	// MessageTypeToolsList enumerates the tools a server exposes.
	MessageTypeToolsList MessageType = "tools_list"
	// MessageTypeListTools asks the server for its tool catalog.
	MessageTypeListTools MessageType = "list_tools"
	// MessageTypeError reports a protocol or dispatch level failure.
	MessageTypeError MessageType = "error"
	// MessageTypePing is an application-level liveness probe.
	MessageTypePing MessageType = "ping"
	// MessageTypePong answers a ping.
	MessageTypePong MessageType = "pong"
)

// Message is the top-level envelope for all MCP communication.
//
// Type is always present and drives interpretation of Data. ID is an optional
// correlation token that round-trips unchanged between a tool_call and its
// matching tool_result.
type Message struct {
	Type      MessageType    `json:"type"`
	Data      map[string]any `json:"data"`
	ID        string         `json:"id,omitempty"`
	Timestamp float64        `json:"timestamp,omitempty"`
}

// DecodeError reports a malformed inbound frame. Receiving one is not fatal
// for a connection; the caller answers with an error envelope and keeps
// reading.
type DecodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

// Unwrap exposes the underlying JSON error, if any.
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a raw frame into a Message. Invalid JSON or an envelope
// missing its required type or data fields yields a *DecodeError; it never
// panics, regardless of input.
func Decode(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON format", Err: err}
	}
	if msg.Type == "" {
		return nil, &DecodeError{Reason: "missing message type"}
	}
	if msg.Data == nil {
		return nil, &DecodeError{Reason: "missing message data"}
	}
	return &msg, nil
}

// Encode serializes a Message for the wire. It is total for any Message whose
// Data contains only JSON-representable values.
func Encode(msg *Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return raw, nil
}

// NewToolCall builds a tool_call envelope. The call id is carried both on the
// envelope and inside data so servers can echo it as tool_call_id.
func NewToolCall(name string, parameters map[string]any, callID string) *Message {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return &Message{
		Type: MessageTypeToolCall,
		Data: map[string]any{
			"id":         callID,
			"name":       name,
			"parameters": parameters,
		},
		ID:        callID,
		Timestamp: now(),
	}
}

// NewToolResult builds a tool_result envelope for the given call id. On
// failure (success=false) errMsg is attached under data.error.
func NewToolResult(callID string, result map[string]any, success bool, errMsg string) *Message {
	data := map[string]any{
		"tool_call_id": callID,
		"result":       result,
		"success":      success,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	return &Message{
		Type:      MessageTypeToolResult,
		Data:      data,
		ID:        callID,
		Timestamp: now(),
	}
}

// NewToolsList builds a tools_list envelope from tool metadata. Each entry is
// expected to carry name, description and parameters only, never handlers.
func NewToolsList(tools []map[string]any) *Message {
	if tools == nil {
		tools = []map[string]any{}
	}
	return &Message{
		Type:      MessageTypeToolsList,
		Data:      map[string]any{"tools": tools},
		Timestamp: now(),
	}
}

// NewListTools builds a list_tools request envelope.
func NewListTools() *Message {
	return &Message{Type: MessageTypeListTools, Data: map[string]any{}, Timestamp: now()}
}

// NewError builds an error envelope. errType, availableTools and suggestions
// are attached only when non-empty.
func NewError(errMsg, errType string, availableTools, suggestions []string) *Message {
	data := map[string]any{"error": errMsg}
	if errType != "" {
		data["error_type"] = errType
	}
	if len(availableTools) > 0 {
		data["available_tools"] = availableTools
	}
	if len(suggestions) > 0 {
		data["suggestions"] = suggestions
	}
	return &Message{Type: MessageTypeError, Data: data, Timestamp: now()}
}

// NewPing builds a ping envelope.
func NewPing() *Message {
	return &Message{Type: MessageTypePing, Data: map[string]any{}, Timestamp: now()}
}

// NewPong builds a pong envelope.
func NewPong() *Message {
	return &Message{Type: MessageTypePong, Data: map[string]any{}, Timestamp: now()}
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
