package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/artifact"
	"github.com/sgranger-dev/boardroom/internal/sandbox"
	"github.com/sgranger-dev/boardroom/internal/stream"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

// deptCaller routes scripted turns by department, identified from the
// system prompt. Each department's script is consumed one turn per call.
type deptCaller struct {
	mu      sync.Mutex
	scripts map[models.Department][]*api.Turn
	fail    map[models.Department]error
	indexes map[models.Department]int
	block   map[models.Department]bool
}

func newDeptCaller() *deptCaller {
	return &deptCaller{
		scripts: make(map[models.Department][]*api.Turn),
		fail:    make(map[models.Department]error),
		indexes: make(map[models.Department]int),
		block:   make(map[models.Department]bool),
	}
}

func departmentFromSystem(system string) models.Department {
	switch {
	case strings.Contains(system, "marketing department"):
		return models.DepartmentMarketing
	case strings.Contains(system, "business strategy department"):
		return models.DepartmentBusiness
	case strings.Contains(system, "finance department"):
		return models.DepartmentFinance
	case strings.Contains(system, "software engineering department"):
		return models.DepartmentEngineering
	}
	return ""
}

func (c *deptCaller) CreateTurn(ctx context.Context, req api.TurnRequest) (*api.Turn, error) {
	dept := departmentFromSystem(req.System)

	c.mu.Lock()
	blocked := c.block[dept]
	c.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[dept]; err != nil {
		return nil, err
	}
	script := c.scripts[dept]
	i := c.indexes[dept]
	if i >= len(script) {
		return &api.Turn{EndTurn: true}, nil
	}
	c.indexes[dept] = i + 1
	return script[i], nil
}

func toolUse(id, name, input string) api.Block {
	return api.Block{Type: api.BlockToolUse, ToolID: id, ToolName: name, ToolInput: json.RawMessage(input)}
}

func marketingTurn() *api.Turn {
	return &api.Turn{Blocks: []api.Block{
		toolUse("m1", "generate_brand_identity", `{"mission":"Move fast","values":["speed"],"tagline":"Go further"}`),
		toolUse("m2", "generate_color_palette", `{"colors":[{"name":"Primary","hex":"#112233"},{"name":"Secondary","hex":"#445566"}]}`),
		toolUse("m3", "generate_logo", `{"description":"bolt","style":"flat"}`),
		toolUse("m4", "write_marketing_copy", `{"headline":"Run faster","subheadline":"Train smarter","call_to_action":"Join now"}`),
	}}
}

func engineeringTurn() *api.Turn {
	return &api.Turn{Blocks: []api.Block{
		toolUse("e1", "write_source_file", `{"path":"index.html","content":"<html><body>hi</body></html>","language":"html"}`),
		toolUse("e2", "summarize_project", `{"framework":"vite","files":["index.html"],"setup_instructions":"npm run dev"}`),
	}}
}

func businessTurn() *api.Turn {
	return &api.Turn{Blocks: []api.Block{
		toolUse("b1", "analyze_market", `{"market_size":"$2B","trends":["wearables"]}`),
		toolUse("b2", "define_business_model", `{"revenue_streams":["subscriptions"],"pricing":"tiered"}`),
		toolUse("b3", "plan_go_to_market", `{"phases":[{"name":"launch","actions":["announce"]}],"channels":["web"]}`),
		toolUse("b4", "generate_slide_deck", `{"title":"Pitch","slides":[{"heading":"Problem","bullets":["pain"]}]}`),
	}}
}

// drain reads every event until the stream closes or the test times out.
func drain(t *testing.T, exec *Execution) []stream.Event {
	t.Helper()
	var events []stream.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-exec.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events so far", len(events))
		}
	}
}

func eventsOfType(events []stream.Event, t stream.EventType) []stream.Event {
	var out []stream.Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestStartAppliesRequestDefaults(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentBusiness] = []*api.Turn{businessTurn()}
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentBusiness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	starts := eventsOfType(events, stream.EventStart)
	if len(starts) != 1 {
		t.Fatalf("start events = %d, want 1", len(starts))
	}
	payload := starts[0].Data.(StartPayload)
	if payload.Request.CompanyName != models.DefaultCompanyName {
		t.Errorf("company = %q, want default %q", payload.Request.CompanyName, models.DefaultCompanyName)
	}
	if len(eventsOfType(events, stream.EventComplete)) != 1 {
		t.Error("expected a terminal complete event")
	}
}

func TestStartRejectsUnknownDepartment(t *testing.T) {
	coord := New(Config{Caller: newDeptCaller()})
	if _, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{"janitorial"}); err == nil {
		t.Fatal("expected error for unknown department")
	}
	if _, err := coord.Start(context.Background(), models.ExecutionRequest{}, nil); err == nil {
		t.Fatal("expected error for empty department list")
	}
}

func TestMarketingCompletionTriggersEngineering(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentMarketing] = []*api.Turn{marketingTurn()}
	caller.scripts[models.DepartmentEngineering] = []*api.Turn{engineeringTurn()}
	coord := New(Config{Caller: caller})

	req := models.ExecutionRequest{CompanyName: "FitFlow", Industry: "Fitness Technology"}
	exec, err := coord.Start(context.Background(), req, []models.Department{models.DepartmentMarketing, models.DepartmentEngineering})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	// Engineering must not start before marketing completes.
	var marketingDone bool
	for _, ev := range events {
		if ev.Type == stream.EventAgentComplete && ev.Department == models.DepartmentMarketing {
			marketingDone = true
		}
		if ev.Type == stream.EventAgentStart && ev.Department == models.DepartmentEngineering && !marketingDone {
			t.Fatal("engineering started before marketing completed")
		}
	}

	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	payload := completes[0].Data.(CompletePayload)
	if got := len(payload.Artifacts); got != 6 {
		t.Errorf("artifacts = %d, want 6 (4 marketing + 2 engineering)", got)
	}
	for _, d := range []models.Department{models.DepartmentMarketing, models.DepartmentEngineering} {
		if payload.Runs[d].Status != models.RunStatusCompleted {
			t.Errorf("%s status = %s, want completed", d, payload.Runs[d].Status)
		}
	}
}

func TestBrandHandoffMapsArtifacts(t *testing.T) {
	artifacts := []models.Artifact{
		{Type: models.ArtifactColorPalette, Data: json.RawMessage(`{"colors":[{"name":"Primary","hex":"#112233"},{"name":"Secondary","hex":"#445566"}]}`)},
		{Type: models.ArtifactMarketingCopy, Data: json.RawMessage(`{"headline":"Run faster","call_to_action":"Join now"}`)},
		{Type: models.ArtifactBrandIdentity, Data: json.RawMessage(`{"mission":"Move fast","tagline":"Go further"}`)},
		{Type: models.ArtifactLogo, Data: json.RawMessage(`{"description":"bolt","format":"svg"}`)},
	}

	req := brandHandoff(artifacts, models.ExecutionRequest{CompanyName: "FitFlow"})

	want := map[string]string{
		"primary_color":    "#112233",
		"secondary_color":  "#445566",
		"headline":         "Run faster",
		"call_to_action":   "Join now",
		"tagline":          "Go further",
		"logo_description": "bolt",
	}
	for key, value := range want {
		if got := req.BrandVariables[key]; got != value {
			t.Errorf("BrandVariables[%q] = %q, want %q", key, got, value)
		}
	}
	if req.CompanyName != "FitFlow" {
		t.Error("transform must not clobber the base request")
	}
}

func TestEdgeFiresOnce(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentEngineering] = []*api.Turn{engineeringTurn()}
	coord := New(Config{Caller: caller})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &Execution{
		ID:        "run-test",
		coord:     coord,
		ctx:       ctx,
		cancel:    cancel,
		stream:    stream.New(256),
		collector: artifact.NewCollector(),
		runs: map[models.Department]*models.DepartmentRun{
			models.DepartmentEngineering: {Department: models.DepartmentEngineering, Status: models.RunStatusPending},
		},
		fired:    make([]bool, len(coord.cfg.Edges)),
		selected: map[models.Department]bool{models.DepartmentEngineering: true},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.fireEdges(exec, models.DepartmentMarketing, models.ExecutionRequest{}.WithDefaults())
		}()
	}
	wg.Wait()
	exec.wg.Wait()
	exec.stream.Close()

	var engineeringStarts int
	for ev := range exec.stream.Events() {
		if ev.Type == stream.EventAgentStart && ev.Department == models.DepartmentEngineering {
			engineeringStarts++
		}
	}
	if engineeringStarts != 1 {
		t.Errorf("engineering started %d times, want exactly 1", engineeringStarts)
	}
}

func TestDepartmentFailureLeavesSiblingsAlone(t *testing.T) {
	caller := newDeptCaller()
	caller.fail[models.DepartmentMarketing] = errors.New("stream broke")
	caller.scripts[models.DepartmentBusiness] = []*api.Turn{businessTurn()}
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentMarketing, models.DepartmentBusiness})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1 (one failure must not kill the run)", len(completes))
	}
	payload := completes[0].Data.(CompletePayload)
	if payload.Runs[models.DepartmentMarketing].Status != models.RunStatusError {
		t.Errorf("marketing status = %s, want error", payload.Runs[models.DepartmentMarketing].Status)
	}
	if payload.Runs[models.DepartmentBusiness].Status != models.RunStatusCompleted {
		t.Errorf("business status = %s, want completed", payload.Runs[models.DepartmentBusiness].Status)
	}

	var failureAnnounced bool
	for _, ev := range eventsOfType(events, stream.EventAgentComplete) {
		p := ev.Data.(AgentCompletePayload)
		if p.Department == models.DepartmentMarketing && p.Status == models.RunStatusError && p.Error != "" {
			failureAnnounced = true
		}
	}
	if !failureAnnounced {
		t.Error("marketing failure was not announced on the stream")
	}
}

func TestUpstreamFailureSettlesDeferredTarget(t *testing.T) {
	caller := newDeptCaller()
	caller.fail[models.DepartmentMarketing] = errors.New("stream broke")
	caller.scripts[models.DepartmentBusiness] = []*api.Turn{businessTurn()}
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{
		models.DepartmentMarketing, models.DepartmentBusiness, models.DepartmentEngineering,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	// Engineering never ran, but it must not ship pending in the terminal
	// payload; it settles to error and is announced like any other run.
	for _, ev := range eventsOfType(events, stream.EventAgentStart) {
		if ev.Department == models.DepartmentEngineering {
			t.Fatal("engineering must not start when marketing failed")
		}
	}

	var announced bool
	for _, ev := range eventsOfType(events, stream.EventAgentComplete) {
		p := ev.Data.(AgentCompletePayload)
		if p.Department == models.DepartmentEngineering {
			announced = true
			if p.Status != models.RunStatusError {
				t.Errorf("engineering announced status = %s, want error", p.Status)
			}
			if !strings.Contains(p.Error, "marketing") {
				t.Errorf("engineering error = %q, want the upstream department named", p.Error)
			}
		}
	}
	if !announced {
		t.Error("deferred engineering run was never announced")
	}

	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	payload := completes[0].Data.(CompletePayload)
	if got := payload.Runs[models.DepartmentEngineering].Status; got != models.RunStatusError {
		t.Errorf("engineering status in terminal payload = %s, want error", got)
	}
	if payload.Runs[models.DepartmentEngineering].CompletedAt == nil {
		t.Error("settled run should carry a completion timestamp")
	}
	if got := payload.Runs[models.DepartmentBusiness].Status; got != models.RunStatusCompleted {
		t.Errorf("business status = %s, want completed", got)
	}
}

func TestAllDepartmentsFailedTerminatesWithError(t *testing.T) {
	caller := newDeptCaller()
	caller.fail[models.DepartmentFinance] = errors.New("stream broke")
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentFinance})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	if len(eventsOfType(events, stream.EventError)) != 1 {
		t.Error("expected a terminal error event")
	}
	if len(eventsOfType(events, stream.EventComplete)) != 0 {
		t.Error("complete must not follow a failed execution")
	}
}

func TestCancelStopsRunnersAndClosesStream(t *testing.T) {
	caller := newDeptCaller()
	caller.block[models.DepartmentFinance] = true
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentFinance})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		exec.Cancel()
	}()
	events := drain(t, exec)

	errs := eventsOfType(events, stream.EventError)
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if p := errs[0].Data.(ErrorPayload); p.Error != "execution canceled" {
		t.Errorf("terminal error = %q, want cancellation", p.Error)
	}
}

// previewProvider is a sandbox provider fake for coordinator tests.
type previewProvider struct {
	mu        sync.Mutex
	createErr error
	writes    map[string][]sandbox.File
	live      map[string]bool
	next      int
}

func newPreviewProvider() *previewProvider {
	return &previewProvider{writes: make(map[string][]sandbox.File), live: make(map[string]bool)}
}

func (p *previewProvider) Create(ctx context.Context) (*sandbox.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.next++
	id := fmt.Sprintf("sbx-%d", p.next)
	p.live[id] = true
	return &sandbox.Handle{ID: id, URL: "https://" + id + ".preview.test", CreatedAt: time.Now()}, nil
}

func (p *previewProvider) Write(ctx context.Context, id string, files []sandbox.File) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes[id] = append(p.writes[id], files...)
	return nil
}

func (p *previewProvider) Destroy(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, id)
	return nil
}

func TestEngineeringCompletionProvisionsPreview(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentEngineering] = []*api.Turn{engineeringTurn()}
	provider := newPreviewProvider()
	coord := New(Config{
		Caller:    caller,
		Sandboxes: sandbox.NewManager(provider, time.Millisecond),
	})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentEngineering})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	ready := eventsOfType(events, stream.EventSandboxReady)
	if len(ready) != 1 {
		t.Fatalf("sandbox_ready events = %d, want 1", len(ready))
	}
	readyPayload := ready[0].Data.(SandboxReadyPayload)
	if readyPayload.URL == "" {
		t.Error("sandbox_ready carries no preview address")
	}

	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	if payload := completes[0].Data.(CompletePayload); payload.PreviewURL != readyPayload.URL {
		t.Errorf("complete preview url = %q, want %q", payload.PreviewURL, readyPayload.URL)
	}

	// Generated files were overlaid on top of the skeleton.
	provider.mu.Lock()
	defer provider.mu.Unlock()
	files := provider.writes[readyPayload.SandboxID]
	var foundGenerated bool
	for _, f := range files {
		if f.Path == "index.html" && strings.Contains(f.Content, "hi") {
			foundGenerated = true
		}
	}
	if !foundGenerated {
		t.Error("generated index.html was not written to the sandbox")
	}
}

func TestSandboxFailureIsNonFatal(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentEngineering] = []*api.Turn{engineeringTurn()}
	provider := newPreviewProvider()
	provider.createErr = errors.New("at capacity")
	coord := New(Config{
		Caller:    caller,
		Sandboxes: sandbox.NewManager(provider, time.Millisecond),
	})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentEngineering})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	if len(eventsOfType(events, stream.EventSandboxError)) != 1 {
		t.Error("expected a sandbox_error event")
	}
	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1 (sandbox failure must not fail the run)", len(completes))
	}
	payload := completes[0].Data.(CompletePayload)
	if payload.PreviewURL != "" {
		t.Error("no preview url should be reported when provisioning failed")
	}
	var sourceFiles int
	for _, a := range payload.Artifacts {
		if a.Type == models.ArtifactSourceFile {
			sourceFiles++
		}
	}
	if sourceFiles == 0 {
		t.Error("generated files must still be returned as artifacts")
	}
}

func TestArtifactPayloadsElidedOnLiveStream(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentMarketing] = []*api.Turn{marketingTurn()}
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentMarketing})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := drain(t, exec)

	for _, ev := range eventsOfType(events, stream.EventArtifact) {
		a := ev.Data.(models.Artifact)
		if a.Type != models.ArtifactLogo {
			continue
		}
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(a.Data, &payload); err != nil {
			t.Fatalf("decode artifact payload: %v", err)
		}
		if v, ok := payload["image_data"]; ok && len(v) > 256 {
			t.Error("live artifact event still carries large image payload")
		}
	}

	completes := eventsOfType(events, stream.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	payload := completes[0].Data.(CompletePayload)
	var fullLogo bool
	for _, a := range payload.Artifacts {
		if a.Type == models.ArtifactLogo && strings.Contains(string(a.Data), "image_data") {
			fullLogo = true
		}
	}
	if !fullLogo {
		t.Error("terminal complete event must carry the full logo payload")
	}
}

func TestRunStatusMonotonic(t *testing.T) {
	caller := newDeptCaller()
	caller.scripts[models.DepartmentFinance] = []*api.Turn{{Blocks: []api.Block{
		toolUse("f1", "project_revenue", `{"years":[{"year":1,"revenue":100000}],"assumptions":["growth"]}`),
		toolUse("f2", "break_down_costs", `{"categories":[{"name":"payroll","monthly":20000}]}`),
		toolUse("f3", "plan_funding", `{"rounds":[{"name":"seed","amount":500000,"timing":"q1"}]}`),
	}}}
	coord := New(Config{Caller: caller})

	exec, err := coord.Start(context.Background(), models.ExecutionRequest{}, []models.Department{models.DepartmentFinance})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, exec)

	runs := exec.Runs()
	run := runs[models.DepartmentFinance]
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s, want completed", run.Status)
	}
	if run.Progress != 100 {
		t.Errorf("progress = %d, want 100", run.Progress)
	}
	if !run.Status.Terminal() {
		t.Error("completed must be terminal")
	}
}
