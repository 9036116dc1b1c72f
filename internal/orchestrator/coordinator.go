// Package orchestrator coordinates department runs for one top-level
// execution: fan-out, dependency edges, progress accounting, artifact
// collection, and the sandbox preview for generated code.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/artifact"
	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/internal/runner"
	"github.com/sgranger-dev/boardroom/internal/sandbox"
	"github.com/sgranger-dev/boardroom/internal/stream"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

const (
	defaultDepartmentTimeout = 5 * time.Minute
	defaultSandboxTimeout    = 90 * time.Second
	defaultStreamBuffer      = 64
)

// Config wires a Coordinator's collaborators. Caller is required; the rest
// have working defaults.
type Config struct {
	// Caller is the model-call capability.
	Caller api.Caller
	// Deps carries the collaborators department tools may use.
	Deps department.Deps
	// Sandboxes provisions code previews. Nil disables previews; generated
	// files are still returned as artifacts.
	Sandboxes *sandbox.Manager
	// Edges is the dependency set. Nil means DefaultEdges().
	Edges []DependencyEdge
	// DepartmentTimeout bounds a single department run.
	DepartmentTimeout time.Duration
	// SandboxTimeout bounds sandbox bring-up and file writes.
	SandboxTimeout time.Duration
	// StreamBuffer is the event channel capacity per execution.
	StreamBuffer int
}

// Coordinator starts executions. It is safe for concurrent use; each
// execution owns its own state.
type Coordinator struct {
	cfg    Config
	runner *runner.Runner
}

// New creates a Coordinator from the config, applying defaults.
func New(cfg Config) *Coordinator {
	if cfg.Edges == nil {
		cfg.Edges = DefaultEdges()
	}
	if cfg.DepartmentTimeout <= 0 {
		cfg.DepartmentTimeout = defaultDepartmentTimeout
	}
	if cfg.SandboxTimeout <= 0 {
		cfg.SandboxTimeout = defaultSandboxTimeout
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = defaultStreamBuffer
	}
	return &Coordinator{
		cfg:    cfg,
		runner: runner.New(cfg.Caller, cfg.Deps),
	}
}

// Execution is one live top-level run. Observers consume Events() until
// the channel closes on the terminal event.
type Execution struct {
	ID      string
	Request models.ExecutionRequest

	coord     *Coordinator
	ctx       context.Context
	cancel    context.CancelFunc
	stream    *stream.Stream
	collector *artifact.Collector

	mu       sync.Mutex
	runs     map[models.Department]*models.DepartmentRun
	fired    []bool
	selected map[models.Department]bool
	preview  *sandbox.Handle

	wg sync.WaitGroup
}

// StartPayload opens the stream and echoes the resolved request.
type StartPayload struct {
	RunID       string                  `json:"run_id"`
	Request     models.ExecutionRequest `json:"request"`
	Departments []models.Department     `json:"departments"`
}

// AgentCompletePayload announces a department reaching a terminal status.
type AgentCompletePayload struct {
	Department models.Department `json:"department"`
	Status     models.RunStatus  `json:"status"`
	Progress   int               `json:"progress"`
	Error      string            `json:"error,omitempty"`
}

// SandboxReadyPayload carries the live preview address.
type SandboxReadyPayload struct {
	SandboxID string `json:"sandbox_id"`
	URL       string `json:"url"`
}

// SandboxErrorPayload reports a non-fatal provisioning failure. Generated
// files are still present in the final artifact set.
type SandboxErrorPayload struct {
	Error string `json:"error"`
}

// CompletePayload is the terminal event body: every run, the full
// (unelided) artifact set, and the preview address when one exists.
type CompletePayload struct {
	RunID      string                                      `json:"run_id"`
	Runs       map[models.Department]*models.DepartmentRun `json:"runs"`
	Artifacts  []models.Artifact                           `json:"artifacts"`
	PreviewURL string                                      `json:"preview_url,omitempty"`
}

// ErrorPayload is the terminal event body when the whole execution failed.
type ErrorPayload struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// Start begins an execution over the given departments and returns
// immediately; events flow on the execution's stream until the terminal
// event. Departments that are the target of an edge whose source is also
// selected stay pending until the edge fires.
func (c *Coordinator) Start(ctx context.Context, req models.ExecutionRequest, departments []models.Department) (*Execution, error) {
	if len(departments) == 0 {
		return nil, fmt.Errorf("no departments selected")
	}
	for _, d := range departments {
		if !d.Valid() {
			return nil, fmt.Errorf("unknown department: %s", d)
		}
	}

	req = req.WithDefaults()
	ctx, cancel := context.WithCancel(ctx)

	exec := &Execution{
		ID:        "run-" + uuid.New().String()[:8],
		Request:   req,
		coord:     c,
		ctx:       ctx,
		cancel:    cancel,
		stream:    stream.New(c.cfg.StreamBuffer),
		collector: artifact.NewCollector(),
		runs:      make(map[models.Department]*models.DepartmentRun),
		fired:     make([]bool, len(c.cfg.Edges)),
		selected:  make(map[models.Department]bool),
	}
	for _, d := range departments {
		exec.selected[d] = true
		exec.runs[d] = &models.DepartmentRun{Department: d, Status: models.RunStatusPending}
	}

	exec.stream.Send(stream.Event{
		Type: stream.EventStart,
		Data: StartPayload{RunID: exec.ID, Request: req, Departments: departments},
	})

	deferred := make(map[models.Department]bool)
	for _, e := range c.cfg.Edges {
		if exec.selected[e.Source] && exec.selected[e.Target] {
			deferred[e.Target] = true
		}
	}

	log.Printf("[coordinator] %s starting %d department(s), %d deferred", exec.ID, len(departments), len(deferred))

	for _, d := range departments {
		if deferred[d] {
			continue
		}
		exec.wg.Add(1)
		go c.runDepartment(exec, d, req)
	}

	go c.finish(exec)
	return exec, nil
}

// Events returns the execution's event channel. It closes after the
// terminal event.
func (e *Execution) Events() <-chan stream.Event {
	return e.stream.Events()
}

// Cancel stops every in-flight department and closes the stream with a
// terminal error event. Any sandbox created so far is torn down.
func (e *Execution) Cancel() {
	e.cancel()
}

// Runs returns a snapshot of every department run.
func (e *Execution) Runs() map[models.Department]*models.DepartmentRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[models.Department]*models.DepartmentRun, len(e.runs))
	for d, r := range e.runs {
		copied := *r
		out[d] = &copied
	}
	return out
}

// Artifacts returns the artifacts collected so far.
func (e *Execution) Artifacts() []models.Artifact {
	return e.collector.Artifacts()
}

// runDepartment owns one department from pending to terminal status.
func (c *Coordinator) runDepartment(exec *Execution, dept models.Department, req models.ExecutionRequest) {
	defer exec.wg.Done()

	spec, err := department.ForDepartment(dept)
	if err != nil {
		c.failDepartment(exec, dept, err)
		return
	}

	exec.mu.Lock()
	run := exec.runs[dept]
	run.Status = models.RunStatusRunning
	run.StartedAt = time.Now()
	exec.mu.Unlock()

	exec.stream.Send(stream.Event{Type: stream.EventAgentStart, Department: dept})
	log.Printf("[coordinator] %s: %s started", exec.ID, dept)

	dctx, cancel := context.WithTimeout(exec.ctx, c.cfg.DepartmentTimeout)
	defer cancel()

	_, err = c.runner.Run(dctx, spec, req, func(ev models.StepEvent) {
		c.recordStep(exec, spec, ev)
	})
	if err != nil {
		c.failDepartment(exec, dept, err)
		return
	}

	exec.mu.Lock()
	run.Status = models.RunStatusCompleted
	run.Progress = 100
	now := time.Now()
	run.CompletedAt = &now
	progress := run.Progress
	exec.mu.Unlock()

	exec.stream.Send(stream.Event{
		Type:       stream.EventAgentComplete,
		Department: dept,
		Data:       AgentCompletePayload{Department: dept, Status: models.RunStatusCompleted, Progress: progress},
	})
	log.Printf("[coordinator] %s: %s completed", exec.ID, dept)

	if dept == models.DepartmentEngineering {
		c.provisionPreview(exec)
	}

	c.fireEdges(exec, dept, req)
}

// recordStep folds one step event into the run registry, forwards it to
// the stream, and publishes any artifact a completed tool call yields.
func (c *Coordinator) recordStep(exec *Execution, spec *department.Spec, ev models.StepEvent) {
	exec.mu.Lock()
	run := exec.runs[spec.Department]
	run.Steps = append(run.Steps, ev)
	if ev.ToolCall != nil && ev.Type == models.StepToolCallResult {
		run.ToolCalls = append(run.ToolCalls, *ev.ToolCall)
		progress := runner.DistinctCompleted(run.ToolCalls) * 100 / spec.RequiredTools
		if progress > 100 {
			progress = 100
		}
		if progress > run.Progress {
			run.Progress = progress
		}
	}
	exec.mu.Unlock()

	eventType := stream.EventStep
	if ev.ToolCall != nil {
		eventType = stream.EventToolCall
	}
	exec.stream.Send(stream.Event{Type: eventType, Department: spec.Department, Data: ev})

	if ev.ToolCall != nil && ev.ToolCall.Status == models.ToolCallCompleted {
		if a := exec.collector.Collect(spec, *ev.ToolCall); a != nil {
			exec.stream.Send(stream.Event{
				Type:       stream.EventArtifact,
				Department: spec.Department,
				Data:       a.Elide(),
			})
		}
	}
}

// failDepartment marks a run as errored. Sibling departments keep going.
func (c *Coordinator) failDepartment(exec *Execution, dept models.Department, err error) {
	exec.mu.Lock()
	run := exec.runs[dept]
	if run.Status.CanTransition(models.RunStatusError) {
		run.Status = models.RunStatusError
		run.Error = err.Error()
		now := time.Now()
		run.CompletedAt = &now
	}
	progress := run.Progress
	exec.mu.Unlock()

	exec.stream.Send(stream.Event{
		Type:       stream.EventAgentComplete,
		Department: dept,
		Data:       AgentCompletePayload{Department: dept, Status: models.RunStatusError, Progress: progress, Error: err.Error()},
	})
	log.Printf("[coordinator] %s: %s failed: %v", exec.ID, dept, err)

	c.cascadeEdgeFailures(exec, dept)
}

// cascadeEdgeFailures settles deferred targets whose source just errored.
// A target that never started would otherwise sit in pending inside the
// terminal payload; instead it moves to error and is announced like any
// other terminal run.
func (c *Coordinator) cascadeEdgeFailures(exec *Execution, source models.Department) {
	for i, e := range c.cfg.Edges {
		if e.Source != source {
			continue
		}

		exec.mu.Lock()
		if exec.fired[i] || !exec.selected[e.Target] {
			exec.mu.Unlock()
			continue
		}
		exec.fired[i] = true
		errMsg := fmt.Sprintf("upstream %s failed", source)
		run := exec.runs[e.Target]
		if run.Status.CanTransition(models.RunStatusError) {
			run.Status = models.RunStatusError
			run.Error = errMsg
			now := time.Now()
			run.CompletedAt = &now
		}
		exec.mu.Unlock()

		exec.stream.Send(stream.Event{
			Type:       stream.EventAgentComplete,
			Department: e.Target,
			Data:       AgentCompletePayload{Department: e.Target, Status: models.RunStatusError, Error: errMsg},
		})
		log.Printf("[coordinator] %s: %s skipped, upstream %s failed", exec.ID, e.Target, source)

		// The settled target may itself be a source further down.
		c.cascadeEdgeFailures(exec, e.Target)
	}
}

// fireEdges spawns targets of unfired edges whose source just completed.
// The fired flag is checked and set under the execution mutex before the
// target goroutine exists, so concurrent completion observers cannot
// double-fire an edge.
func (c *Coordinator) fireEdges(exec *Execution, source models.Department, base models.ExecutionRequest) {
	for i, e := range c.cfg.Edges {
		if e.Source != source {
			continue
		}

		exec.mu.Lock()
		if exec.fired[i] || !exec.selected[e.Target] {
			exec.mu.Unlock()
			continue
		}
		exec.fired[i] = true
		exec.wg.Add(1)
		exec.mu.Unlock()

		req := base
		if e.Transform != nil {
			req = e.Transform(exec.collector.ByDepartment(e.Source), base)
		}
		log.Printf("[coordinator] %s: edge %s -> %s fired", exec.ID, e.Source, e.Target)
		go c.runDepartment(exec, e.Target, req)
	}
}

// provisionPreview creates a sandbox, overlays the generated source files,
// and announces the preview address. Any failure is a non-fatal
// sandbox_error event; the files are still in the artifact set.
func (c *Coordinator) provisionPreview(exec *Execution) {
	if c.cfg.Sandboxes == nil {
		return
	}

	files := exec.sourceFiles()
	if len(files) == 0 {
		return
	}

	sctx, cancel := context.WithTimeout(exec.ctx, c.cfg.SandboxTimeout)
	defer cancel()

	handle, err := c.cfg.Sandboxes.Create(sctx)
	if err != nil {
		exec.stream.Send(stream.Event{
			Type:       stream.EventSandboxError,
			Department: models.DepartmentEngineering,
			Data:       SandboxErrorPayload{Error: err.Error()},
		})
		log.Printf("[coordinator] %s: sandbox creation failed: %v", exec.ID, err)
		return
	}

	if err := c.cfg.Sandboxes.Write(sctx, handle.ID, files); err != nil {
		exec.stream.Send(stream.Event{
			Type:       stream.EventSandboxError,
			Department: models.DepartmentEngineering,
			Data:       SandboxErrorPayload{Error: err.Error()},
		})
		log.Printf("[coordinator] %s: sandbox write failed: %v", exec.ID, err)
		return
	}

	exec.mu.Lock()
	exec.preview = handle
	exec.mu.Unlock()

	exec.stream.Send(stream.Event{
		Type:       stream.EventSandboxReady,
		Department: models.DepartmentEngineering,
		Data:       SandboxReadyPayload{SandboxID: handle.ID, URL: handle.URL},
	})
	log.Printf("[coordinator] %s: preview ready at %s", exec.ID, handle.URL)
}

// sourceFiles extracts generated files from engineering's artifacts.
func (e *Execution) sourceFiles() []sandbox.File {
	var files []sandbox.File
	for _, a := range e.collector.ByDepartment(models.DepartmentEngineering) {
		if a.Type != models.ArtifactSourceFile {
			continue
		}
		var f sandbox.File
		if err := json.Unmarshal(a.Data, &f); err != nil {
			continue
		}
		if f.Path != "" && f.Content != "" {
			files = append(files, f)
		}
	}
	return files
}

// finish waits for every department goroutine and sends the terminal
// event, which closes the stream.
func (c *Coordinator) finish(exec *Execution) {
	exec.wg.Wait()
	defer exec.cancel()

	runs := exec.Runs()
	artifacts := exec.collector.Artifacts()

	if err := exec.ctx.Err(); err != nil {
		exec.stream.Send(stream.Event{
			Type: stream.EventError,
			Data: ErrorPayload{RunID: exec.ID, Error: "execution canceled"},
		})
		exec.teardownPreview()
		log.Printf("[coordinator] %s canceled", exec.ID)
		return
	}

	allFailed := true
	for _, r := range runs {
		if r.Status != models.RunStatusError {
			allFailed = false
			break
		}
	}
	if allFailed {
		exec.stream.Send(stream.Event{
			Type: stream.EventError,
			Data: ErrorPayload{RunID: exec.ID, Error: "all departments failed"},
		})
		exec.teardownPreview()
		log.Printf("[coordinator] %s failed", exec.ID)
		return
	}

	payload := CompletePayload{RunID: exec.ID, Runs: runs, Artifacts: artifacts}
	exec.mu.Lock()
	if exec.preview != nil {
		payload.PreviewURL = exec.preview.URL
	}
	exec.mu.Unlock()

	exec.stream.Send(stream.Event{Type: stream.EventComplete, Data: payload})
	log.Printf("[coordinator] %s complete: %d artifact(s)", exec.ID, len(artifacts))
}

// teardownPreview destroys the execution's sandbox, if any. Best effort;
// the stream is already closed when this runs.
func (e *Execution) teardownPreview() {
	e.mu.Lock()
	handle := e.preview
	e.preview = nil
	e.mu.Unlock()
	if handle == nil || e.coord.cfg.Sandboxes == nil {
		return
	}
	if err := e.coord.cfg.Sandboxes.Destroy(context.Background(), handle.ID); err != nil {
		log.Printf("[coordinator] %s: preview teardown failed: %v", e.ID, err)
	}
}
