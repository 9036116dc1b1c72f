package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/orchestrator"
	"github.com/sgranger-dev/boardroom/internal/store"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

// routingCaller picks a scripted turn by matching a substring of the
// system prompt, covering both chat turns and department runs.
type routingCaller struct {
	mu     sync.Mutex
	turns  map[string][]*api.Turn
	counts map[string]int
}

func newRoutingCaller() *routingCaller {
	return &routingCaller{turns: make(map[string][]*api.Turn), counts: make(map[string]int)}
}

func (r *routingCaller) script(systemSubstring string, turns ...*api.Turn) {
	r.turns[systemSubstring] = turns
}

func (r *routingCaller) CreateTurn(ctx context.Context, req api.TurnRequest) (*api.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, turns := range r.turns {
		if !strings.Contains(req.System, key) {
			continue
		}
		i := r.counts[key]
		if i >= len(turns) {
			return &api.Turn{EndTurn: true}, nil
		}
		r.counts[key] = i + 1
		return turns[i], nil
	}
	return &api.Turn{EndTurn: true}, nil
}

func toolUse(id, name, input string) api.Block {
	return api.Block{Type: api.BlockToolUse, ToolID: id, ToolName: name, ToolInput: json.RawMessage(input)}
}

func financeTurn() *api.Turn {
	return &api.Turn{Blocks: []api.Block{
		toolUse("f1", "project_revenue", `{"years":[{"year":1,"revenue":120000}],"assumptions":["steady growth"]}`),
		toolUse("f2", "break_down_costs", `{"categories":[{"name":"payroll","monthly":15000}]}`),
		toolUse("f3", "plan_funding", `{"rounds":[{"name":"seed","amount":750000,"timing":"q2"}]}`),
	}}
}

func newTestServer(caller api.Caller, st store.Store) *Server {
	return New(Options{
		Coordinator: orchestrator.New(orchestrator.Config{Caller: caller}),
		Caller:      caller,
		Store:       st,
	})
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	Name string
	Data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, chunk := range strings.Split(body, "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(chunk, "\n") {
			if after, ok := strings.CutPrefix(line, "event: "); ok {
				ev.Name = after
			}
			if after, ok := strings.CutPrefix(line, "data: "); ok {
				ev.Data = after
			}
		}
		if ev.Name != "" || ev.Data != "" {
			events = append(events, ev)
		}
	}
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(newRoutingCaller(), store.NewMemoryStore())
	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestExecuteUnknownDepartment(t *testing.T) {
	s := newTestServer(newRoutingCaller(), store.NewMemoryStore())
	rec := doRequest(t, s, http.MethodPost, "/execute/janitorial", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestExecuteStreamsDepartmentRun(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("finance department", financeTurn())
	s := newTestServer(caller, store.NewMemoryStore())

	rec := doRequest(t, s, http.MethodPost, "/execute/finance", `{"company_name":"FitFlow"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	events := parseSSE(t, rec.Body.String())
	names := eventNames(events)
	if len(names) == 0 || names[0] != "start" {
		t.Fatalf("first event = %v, want start", names)
	}
	if names[len(names)-1] != "complete" {
		t.Fatalf("last event = %q, want complete (all: %v)", names[len(names)-1], names)
	}

	var sawAgentComplete bool
	for _, n := range names {
		if n == "agent_complete" {
			sawAgentComplete = true
		}
	}
	if !sawAgentComplete {
		t.Error("expected an agent_complete event on the stream")
	}
}

func TestExecuteAllRunsEveryDepartment(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("marketing department", &api.Turn{Blocks: []api.Block{
		toolUse("m1", "generate_brand_identity", `{"mission":"m","tagline":"t"}`),
		toolUse("m2", "generate_color_palette", `{"colors":[{"name":"Primary","hex":"#102030"}]}`),
		toolUse("m3", "generate_logo", `{"description":"wave"}`),
		toolUse("m4", "write_marketing_copy", `{"headline":"h","call_to_action":"c"}`),
	}})
	caller.script("business strategy department", &api.Turn{Blocks: []api.Block{
		toolUse("b1", "analyze_market", `{"market_size":"$1B"}`),
		toolUse("b2", "define_business_model", `{"revenue_streams":["saas"]}`),
		toolUse("b3", "plan_go_to_market", `{"phases":[{"name":"launch"}]}`),
		toolUse("b4", "generate_slide_deck", `{"title":"Deck","slides":[{"heading":"One"}]}`),
	}})
	caller.script("finance department", financeTurn())
	caller.script("software engineering department", &api.Turn{Blocks: []api.Block{
		toolUse("e1", "write_source_file", `{"path":"index.html","content":"<html></html>"}`),
		toolUse("e2", "summarize_project", `{"framework":"vite","files":["index.html"]}`),
	}})
	s := newTestServer(caller, store.NewMemoryStore())

	rec := doRequest(t, s, http.MethodPost, "/execute/all", `{"company_name":"FitFlow"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events := parseSSE(t, rec.Body.String())
	starts := make(map[string]bool)
	for _, ev := range events {
		if ev.Name != "agent_start" {
			continue
		}
		var payload struct {
			Department string `json:"department"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			t.Fatalf("decode agent_start: %v", err)
		}
		starts[payload.Department] = true
	}
	for _, d := range models.AllDepartments() {
		if !starts[string(d)] {
			t.Errorf("department %s never started", d)
		}
	}
	if names := eventNames(events); names[len(names)-1] != "complete" {
		t.Errorf("last event = %q, want complete", names[len(names)-1])
	}
}

func TestChatWithoutIntentReturnsCompleteOnly(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("concierge", &api.Turn{
		Blocks:  []api.Block{{Type: api.BlockText, Text: "Tell me about your company."}},
		EndTurn: true,
	})
	st := store.NewMemoryStore()
	s := newTestServer(caller, st)

	body := `{"thread_id":"th1","messages":[{"role":"user","content":"I want to start a business"}]}`
	rec := doRequest(t, s, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events := parseSSE(t, rec.Body.String())
	names := eventNames(events)
	if names[len(names)-1] != "complete" {
		t.Fatalf("last event = %q, want complete (all: %v)", names[len(names)-1], names)
	}
	for _, n := range names {
		if n == "agent_start" {
			t.Error("no department should run without execution intent")
		}
	}

	// The updated conversation was persisted.
	thread, err := st.GetThread(context.Background(), "th1")
	if err != nil {
		t.Fatalf("thread not persisted: %v", err)
	}
	if len(thread.Messages) != 2 {
		t.Errorf("persisted messages = %d, want 2 (user + assistant)", len(thread.Messages))
	}
	if thread.Messages[1].Role != "assistant" {
		t.Errorf("last message role = %q, want assistant", thread.Messages[1].Role)
	}
}

func TestChatToolCallTriggersExecution(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("concierge", &api.Turn{Blocks: []api.Block{
		{Type: api.BlockText, Text: "Starting execution now."},
		toolUse("c1", "start_execution", `{"company_name":"FitFlow","industry":"Fitness Technology"}`),
	}})
	caller.script("finance department", financeTurn())
	// Remaining departments complete immediately via EndTurn fallback.
	s := newTestServer(caller, store.NewMemoryStore())

	body := `{"messages":[{"role":"user","content":"go"}]}`
	rec := doRequest(t, s, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events := parseSSE(t, rec.Body.String())
	names := eventNames(events)

	var sawStart, sawFinance bool
	for _, ev := range events {
		if ev.Name == "start" {
			sawStart = true
		}
		if ev.Name == "agent_start" && strings.Contains(ev.Data, "finance") {
			sawFinance = true
		}
	}
	if !sawStart {
		t.Errorf("expected an execution start event (all: %v)", names)
	}
	if !sawFinance {
		t.Errorf("expected finance to run (all: %v)", names)
	}
	terminal := names[len(names)-1]
	if terminal != "complete" && terminal != "error" {
		t.Errorf("last event = %q, want a terminal event", terminal)
	}
}

func TestChatResubmittedHistoryDoesNotReExecute(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("concierge", &api.Turn{
		Blocks:  []api.Block{{Type: api.BlockText, Text: "You're welcome!"}},
		EndTurn: true,
	})
	s := newTestServer(caller, store.NewMemoryStore())

	// The history echoes the earlier assistant message that carried the
	// start_execution tool call; only the final user message is new.
	body := `{"messages":[
		{"role":"user","content":"go"},
		{"role":"assistant","content":"Starting execution now.","tool_calls":[{"name":"start_execution","input":{"company_name":"FitFlow"}}]},
		{"role":"user","content":"thanks, looks great"}
	]}`
	rec := doRequest(t, s, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events := parseSSE(t, rec.Body.String())
	names := eventNames(events)
	for _, n := range names {
		if n == "start" || n == "agent_start" {
			t.Fatalf("history echo must not relaunch the departments (all: %v)", names)
		}
	}
	if names[len(names)-1] != "complete" {
		t.Errorf("last event = %q, want complete", names[len(names)-1])
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	s := newTestServer(newRoutingCaller(), store.NewMemoryStore())
	rec := doRequest(t, s, http.MethodPost, "/chat", `{"messages":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// failingStore errors on every write, for the persistence-is-best-effort
// contract.
type failingStore struct {
	store.Store
}

func (failingStore) UpsertThread(ctx context.Context, t *store.Thread) error {
	return errors.New("disk full")
}

func TestChatPersistenceFailureIsSwallowed(t *testing.T) {
	caller := newRoutingCaller()
	caller.script("concierge", &api.Turn{
		Blocks:  []api.Block{{Type: api.BlockText, Text: "Noted."}},
		EndTurn: true,
	})
	s := newTestServer(caller, failingStore{Store: store.NewMemoryStore()})

	body := `{"thread_id":"th1","messages":[{"role":"user","content":"hello"}]}`
	rec := doRequest(t, s, http.MethodPost, "/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite store failure", rec.Code)
	}
	events := parseSSE(t, rec.Body.String())
	if names := eventNames(events); names[len(names)-1] != "complete" {
		t.Errorf("last event = %q, want complete", names[len(names)-1])
	}
}

func TestChatProviderFailure(t *testing.T) {
	caller := newRoutingCaller()
	// No script matches "concierge", but an unmatched system prompt returns
	// EndTurn, so force a real failure with a canceled context instead.
	s := newTestServer(caller, store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
