package models

import (
	"encoding/json"
	"time"
)

// StepEventType classifies one entry in a department's step log.
type StepEventType string

const (
	// StepThinking carries provider reasoning text.
	StepThinking StepEventType = "thinking"
	// StepTextOutput carries provider prose output.
	StepTextOutput StepEventType = "text_output"
	// StepToolCallStart marks the beginning of a tool invocation.
	StepToolCallStart StepEventType = "tool_call_start"
	// StepToolCallResult carries the outcome of a tool invocation.
	StepToolCallResult StepEventType = "tool_call_result"
)

// StepEvent is one append-only entry in a DepartmentRun's step log.
// Ordering matters within a run; runs are causally independent of each other.
type StepEvent struct {
	// ID is a department-scoped short id.
	ID string `json:"id"`
	// Department is the run this step belongs to.
	Department Department `json:"department"`
	// Type classifies the step.
	Type StepEventType `json:"type"`
	// Text holds thinking or text_output content.
	Text string `json:"text,omitempty"`
	// ToolCall is set for tool_call_start and tool_call_result steps.
	ToolCall *ToolCallEvent `json:"tool_call,omitempty"`
	// Timestamp is when the step was produced.
	Timestamp time.Time `json:"timestamp"`
}

// ToolCallStatus tracks a tool invocation's lifecycle.
type ToolCallStatus string

const (
	// ToolCallPending indicates the call has been requested but not started.
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallRunning indicates the tool is executing.
	ToolCallRunning ToolCallStatus = "running"
	// ToolCallCompleted indicates the tool finished and produced a result.
	ToolCallCompleted ToolCallStatus = "completed"
	// ToolCallError indicates the tool failed or its input was invalid.
	ToolCallError ToolCallStatus = "error"
)

// ToolCallEvent identifies one tool invocation within a DepartmentRun.
type ToolCallEvent struct {
	// ID is unique within the top-level execution.
	ID string `json:"id"`
	// Department owns this call.
	Department Department `json:"department"`
	// Name is the tool name as declared to the provider.
	Name string `json:"name"`
	// Input is the raw arguments the provider supplied.
	Input json.RawMessage `json:"input,omitempty"`
	// Status is the call lifecycle state.
	Status ToolCallStatus `json:"status"`
	// Result is the structured payload on success.
	Result json.RawMessage `json:"result,omitempty"`
	// Error is the failure message when Status is error.
	Error string `json:"error,omitempty"`
}

// DepartmentRun is one execution of a department pipeline. It is owned
// exclusively by the coordinator for the duration of the run; observers
// receive copies.
type DepartmentRun struct {
	// Department identifies the pipeline.
	Department Department `json:"department"`
	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`
	// Progress is completed required tools as a percentage, monotonic.
	Progress int `json:"progress"`
	// Steps is the ordered step log produced so far.
	Steps []StepEvent `json:"steps"`
	// ToolCalls lists completed and failed tool invocations.
	ToolCalls []ToolCallEvent `json:"tool_calls"`
	// Error is the failure message when Status is error.
	Error string `json:"error,omitempty"`
	// StartedAt is when the run left pending.
	StartedAt time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the run reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
