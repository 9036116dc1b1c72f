package models

import (
	"encoding/json"
	"time"
)

// Message is one entry in a conversation thread.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the plain-text body of the message.
	Content string `json:"content"`
	// ToolCalls lists structured tool invocations the model emitted with
	// this message, if any.
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
	// CreatedAt is when the message was produced.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ToolInvocation is a structured tool call embedded in a message.
type ToolInvocation struct {
	// Name is the tool name.
	Name string `json:"name"`
	// Input is the raw arguments.
	Input json.RawMessage `json:"input"`
}
