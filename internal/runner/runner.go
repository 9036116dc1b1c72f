// Package runner drives a single department pipeline: provider calls, tool
// dispatch, and step-event emission.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

// EmitFunc receives step events as the run produces them. It is called from
// the runner's goroutine, in order.
type EmitFunc func(models.StepEvent)

// Result is the terminal outcome of one department run.
type Result struct {
	// ToolCalls lists every tool invocation in completion order.
	ToolCalls []models.ToolCallEvent
	// Turns is how many provider calls were made.
	Turns int
}

// Runner executes department pipelines against a model-call capability.
type Runner struct {
	caller api.Caller
	deps   department.Deps
}

// New creates a Runner. deps carries the collaborators tools may use.
func New(caller api.Caller, deps department.Deps) *Runner {
	return &Runner{caller: caller, deps: deps}
}

// Run executes one department against the request, emitting step events as
// they occur. A single tool failure is recorded on its ToolCallEvent and
// does not abort the pipeline; a provider transport failure returns an
// error and fails the run, leaving already-emitted events intact.
//
// The department is complete once each of its required tools has completed
// at least once, or once the provider ends its turn, whichever happens
// first.
func (r *Runner) Run(ctx context.Context, spec *department.Spec, req models.ExecutionRequest, emit EmitFunc) (*Result, error) {
	if emit == nil {
		emit = func(models.StepEvent) {}
	}

	result := &Result{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(spec.UserPrompt(req))),
	}
	tools := spec.ProviderTools()

	for result.Turns < spec.MaxTurns {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Turns++

		turn, err := r.caller.CreateTurn(ctx, api.TurnRequest{
			System:   spec.SystemPrompt,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return result, fmt.Errorf("%s provider call failed: %w", spec.Department, err)
		}

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion

		for _, block := range turn.Blocks {
			switch block.Type {
			case api.BlockThinking:
				emit(step(spec.Department, models.StepThinking, block.Text, nil))

			case api.BlockText:
				emit(step(spec.Department, models.StepTextOutput, block.Text, nil))
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(block.Text))

			case api.BlockToolUse:
				call := r.executeTool(ctx, spec, block, emit)
				result.ToolCalls = append(result.ToolCalls, call)

				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(block.ToolID, block.ToolInput, block.ToolName))

				content := string(call.Result)
				if call.Status == models.ToolCallError {
					content = call.Error
				}
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(block.ToolID, content, call.Status == models.ToolCallError))
			}
		}

		if DistinctCompleted(result.ToolCalls) >= spec.RequiredTools {
			return result, nil
		}
		if turn.EndTurn {
			return result, nil
		}

		if len(assistantBlocks) > 0 {
			messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		}
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return result, fmt.Errorf("%s: max turns (%d) reached without completing", spec.Department, spec.MaxTurns)
}

// executeTool validates and runs one tool call, emitting the start and
// result steps around it.
func (r *Runner) executeTool(ctx context.Context, spec *department.Spec, block api.Block, emit EmitFunc) models.ToolCallEvent {
	call := models.ToolCallEvent{
		ID:         block.ToolID,
		Department: spec.Department,
		Name:       block.ToolName,
		Input:      block.ToolInput,
		Status:     models.ToolCallRunning,
	}
	if call.ID == "" {
		call.ID = "tc-" + uuid.New().String()[:8]
	}
	emit(step(spec.Department, models.StepToolCallStart, "", &call))

	tool := spec.Tool(block.ToolName)
	if tool == nil {
		call.Status = models.ToolCallError
		call.Error = fmt.Sprintf("unknown tool: %s", block.ToolName)
	} else if output, err := tool.Run(ctx, r.deps, block.ToolInput); err != nil {
		call.Status = models.ToolCallError
		call.Error = err.Error()
	} else {
		call.Status = models.ToolCallCompleted
		call.Result = output
	}

	emit(step(spec.Department, models.StepToolCallResult, "", &call))
	return call
}

// DistinctCompleted counts distinct tool names with at least one completed
// call, the quantity department progress is measured in.
func DistinctCompleted(calls []models.ToolCallEvent) int {
	seen := make(map[string]bool)
	for _, c := range calls {
		if c.Status == models.ToolCallCompleted {
			seen[c.Name] = true
		}
	}
	return len(seen)
}

func step(d models.Department, t models.StepEventType, text string, call *models.ToolCallEvent) models.StepEvent {
	ev := models.StepEvent{
		ID:         "step-" + uuid.New().String()[:8],
		Department: d,
		Type:       t,
		Text:       text,
		Timestamp:  time.Now(),
	}
	if call != nil {
		copied := *call
		ev.ToolCall = &copied
	}
	return ev
}
