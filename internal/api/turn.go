package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Caller is the model-call capability consumed by department runners: one
// provider turn in, a sequence of content blocks out. Implemented by Client
// against the Anthropic API and by fakes in tests.
type Caller interface {
	CreateTurn(ctx context.Context, req TurnRequest) (*Turn, error)
}

// TurnRequest carries everything for one provider call.
type TurnRequest struct {
	// System is the department-specific system prompt.
	System string
	// Messages is the conversation so far, including prior tool results.
	Messages []anthropic.MessageParam
	// Tools is the declared tool set with schemas.
	Tools []anthropic.ToolUnionParam
	// MaxTokens bounds the response; 0 uses the default.
	MaxTokens int64
}

// BlockType classifies one content block in a turn.
type BlockType string

const (
	// BlockText is prose output.
	BlockText BlockType = "text"
	// BlockThinking is provider reasoning content.
	BlockThinking BlockType = "thinking"
	// BlockToolUse is a tool invocation request.
	BlockToolUse BlockType = "tool_use"
)

// Block is one content block from the provider, in emission order.
type Block struct {
	Type      BlockType
	Text      string
	ToolID    string
	ToolName  string
	ToolInput json.RawMessage
}

// Turn is the outcome of one provider call.
type Turn struct {
	// Blocks are the content blocks in the order the provider produced them.
	Blocks []Block
	// EndTurn is true when the provider stopped without requesting tools.
	EndTurn bool
	// TokensIn and TokensOut report usage for this call.
	TokensIn  int64
	TokensOut int64
}

const defaultMaxTokens = 8192

// CreateTurn makes one Messages call and flattens the response content.
func (c *Client) CreateTurn(ctx context.Context, req TurnRequest) (*Turn, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: req.Messages,
		Tools:    req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	turn := &Turn{
		EndTurn:   resp.StopReason == anthropic.StopReasonEndTurn,
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
	}

	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			turn.Blocks = append(turn.Blocks, Block{Type: BlockText, Text: variant.Text})
		case anthropic.ThinkingBlock:
			turn.Blocks = append(turn.Blocks, Block{Type: BlockThinking, Text: variant.Thinking})
		case anthropic.ToolUseBlock:
			turn.Blocks = append(turn.Blocks, Block{
				Type:      BlockToolUse,
				ToolID:    variant.ID,
				ToolName:  variant.Name,
				ToolInput: variant.Input,
			})
		}
	}

	return turn, nil
}
