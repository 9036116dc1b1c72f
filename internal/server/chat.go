package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/extract"
	"github.com/sgranger-dev/boardroom/internal/stream"
	"github.com/sgranger-dev/boardroom/internal/store"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

const chatSystemPrompt = `You are the concierge for a company-building platform that runs
marketing, business, finance, and engineering departments. Gather the company name,
industry, target audience, product description, differentiation, and brand tone through
conversation. When the user is ready to execute, or explicitly says to start, call the
start_execution tool with everything gathered so far. Missing fields are filled with
sensible defaults; never block execution waiting for more detail once the user says go.`

// chatSession runs conversational turns and detects execution intent.
type chatSession struct {
	caller api.Caller
	store  store.Store
}

func newChatSession(caller api.Caller, st store.Store) *chatSession {
	return &chatSession{caller: caller, store: st}
}

// ChatRequest is the POST /chat body: the ordered conversation so far and
// an optional thread id for persistence.
type ChatRequest struct {
	ThreadID string           `json:"thread_id,omitempty"`
	Messages []models.Message `json:"messages"`
}

// ChatCompletePayload terminates a chat stream that did not trigger an
// execution.
type ChatCompletePayload struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// handleChat runs one model turn over the conversation, streams the reply,
// and, when execution intent is detected, runs the full department set on
// the same stream. The updated message list is persisted best effort.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages is required"})
	}

	turn, err := s.chat.createTurn(c.Request().Context(), req.Messages)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	messages, assistantText := s.chat.appendReply(req.Messages, turn)
	s.chat.persist(c.Request().Context(), req.ThreadID, messages)

	w, err := newSSEWriter(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if assistantText != "" {
		ev := stream.Event{
			Type: stream.EventStep,
			Data: models.StepEvent{
				ID:        "step-" + uuid.New().String()[:8],
				Type:      models.StepTextOutput,
				Text:      assistantText,
				Timestamp: time.Now(),
			},
			Timestamp: time.Now(),
		}
		if err := w.write(ev); err != nil {
			return nil
		}
	}

	if execReq := extract.New().Extract(messages); execReq != nil {
		exec, err := s.coord.Start(context.Background(), *execReq, models.AllDepartments())
		if err != nil {
			return w.write(stream.Event{Type: stream.EventError, Data: map[string]string{"error": err.Error()}, Timestamp: time.Now()})
		}
		if err := w.pump(exec.Events()); err != nil {
			exec.Cancel()
			log.Printf("[server] chat stream for %s ended early: %v", exec.ID, err)
		}
		return nil
	}

	return w.write(stream.Event{
		Type:      stream.EventComplete,
		Data:      ChatCompletePayload{ThreadID: req.ThreadID, Message: assistantText},
		Timestamp: time.Now(),
	})
}

// createTurn runs one provider call with the start_execution tool declared.
func (cs *chatSession) createTurn(ctx context.Context, messages []models.Message) (*api.Turn, error) {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	return cs.caller.CreateTurn(ctx, api.TurnRequest{
		System:   chatSystemPrompt,
		Messages: params,
		Tools:    []anthropic.ToolUnionParam{startExecutionTool()},
	})
}

// appendReply folds the provider turn into the conversation and returns
// the updated list plus the assistant's prose.
func (cs *chatSession) appendReply(messages []models.Message, turn *api.Turn) ([]models.Message, string) {
	reply := models.Message{Role: "assistant", CreatedAt: time.Now()}
	for _, block := range turn.Blocks {
		switch block.Type {
		case api.BlockText:
			if reply.Content != "" {
				reply.Content += "\n"
			}
			reply.Content += block.Text
		case api.BlockToolUse:
			reply.ToolCalls = append(reply.ToolCalls, models.ToolInvocation{
				Name:  block.ToolName,
				Input: block.ToolInput,
			})
		}
	}
	return append(messages, reply), reply.Content
}

// persist writes the thread back to the store. Failures are logged and
// swallowed; chat usability does not depend on persistence.
func (cs *chatSession) persist(ctx context.Context, threadID string, messages []models.Message) {
	if cs.store == nil || threadID == "" {
		return
	}
	err := cs.store.UpsertThread(ctx, &store.Thread{
		ID:        threadID,
		Messages:  messages,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[server] thread %s persistence failed: %v", threadID, err)
	}
}

// startExecutionTool is the schema the chat model uses to hand off an
// execution request.
func startExecutionTool() anthropic.ToolUnionParam {
	stringProp := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        extract.StartToolName,
			Description: anthropic.String("Start department execution with the gathered company details. Call this as soon as the user asks to execute."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"company_name":        stringProp("Company or product name"),
					"industry":            stringProp("Industry or market"),
					"target_audience":     stringProp("Who the product is for"),
					"product_description": stringProp("What the product does"),
					"differentiation":     stringProp("What sets it apart"),
					"brand_tone":          stringProp("Desired brand voice"),
					"competitors": map[string]interface{}{
						"type":        "array",
						"description": "Known competitors",
						"items":       map[string]interface{}{"type": "string"},
					},
				},
				Required: []string{"company_name"},
			},
		},
	}
}
