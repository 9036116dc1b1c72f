// Package tui renders a live execution as a full-screen terminal view.
// Events arrive as messages via program.Send; the view never reads the
// stream directly.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/internal/orchestrator"
	"github.com/sgranger-dev/boardroom/internal/stream"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

// Status icons for department runs.
const (
	iconRunning = "[●]"
	iconDone    = "[✓]"
	iconFailed  = "[✗]"
	iconPending = "[○]"
)

// StreamEventMsg wraps one execution stream event for the view.
type StreamEventMsg struct {
	Event stream.Event
}

// ExecutionDoneMsg tells the view the execution reached its terminal
// event. The view stays up until the user quits so results remain visible.
type ExecutionDoneMsg struct {
	Success bool
	Message string
}

const progressBarWidth = 24

type deptRow struct {
	status    models.RunStatus
	progress  int
	activity  string
	artifacts int
	err       string
	required  int
	toolsDone map[string]bool
}

func newDeptRow(d models.Department) *deptRow {
	row := &deptRow{status: models.RunStatusPending, toolsDone: make(map[string]bool)}
	if spec, err := department.ForDepartment(d); err == nil {
		row.required = spec.RequiredTools
	}
	return row
}

// RunView displays per-department progress for one execution.
type RunView struct {
	order []models.Department
	rows  map[models.Department]*deptRow
	spin  spinner.Model

	runID      string
	previewURL string
	sandboxErr string
	done       bool
	success    bool
	doneMsg    string
	width      int

	// Styles
	titleStyle    lipgloss.Style
	deptStyle     lipgloss.Style
	activityStyle lipgloss.Style
	barFillStyle  lipgloss.Style
	barEmptyStyle lipgloss.Style
	statusRunning lipgloss.Style
	statusDone    lipgloss.Style
	statusFailed  lipgloss.Style
	statusPending lipgloss.Style
	previewStyle  lipgloss.Style
	errorStyle    lipgloss.Style
	footerStyle   lipgloss.Style
}

// NewRunView creates the view for the given departments, shown pending
// until their agent_start events arrive.
func NewRunView(departments []models.Department) *RunView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))

	rows := make(map[models.Department]*deptRow, len(departments))
	for _, d := range departments {
		rows[d] = newDeptRow(d)
	}

	return &RunView{
		order: append([]models.Department(nil), departments...),
		rows:  rows,
		spin:  sp,
		width: 80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),

		deptStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		activityStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),

		barFillStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		barEmptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")),

		statusRunning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		statusDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green

		statusFailed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		statusPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray

		previewStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // Blue
			Underline(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// NewRunProgram wraps a RunView in a tea.Program on the alt screen.
func NewRunProgram(departments []models.Department) (*tea.Program, *RunView) {
	view := NewRunView(departments)
	program := tea.NewProgram(view, tea.WithAltScreen())
	return program, view
}

// Init starts the spinner tick loop.
func (v *RunView) Init() tea.Cmd {
	return v.spin.Tick
}

// Update handles key presses, spinner ticks, and execution messages.
func (v *RunView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		}

	case tea.WindowSizeMsg:
		v.width = msg.Width

	case spinner.TickMsg:
		if v.done {
			return v, nil
		}
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return v, cmd

	case StreamEventMsg:
		v.applyEvent(msg.Event)

	case ExecutionDoneMsg:
		v.done = true
		v.success = msg.Success
		v.doneMsg = msg.Message
	}

	return v, nil
}

// applyEvent folds one stream event into the view state. Data carries the
// concrete payload types since view and coordinator share a process.
func (v *RunView) applyEvent(ev stream.Event) {
	switch ev.Type {
	case stream.EventStart:
		if p, ok := ev.Data.(orchestrator.StartPayload); ok {
			v.runID = p.RunID
			v.order = append([]models.Department(nil), p.Departments...)
			for _, d := range p.Departments {
				if _, ok := v.rows[d]; !ok {
					v.rows[d] = newDeptRow(d)
				}
			}
		}

	case stream.EventAgentStart:
		if row := v.rows[ev.Department]; row != nil {
			row.status = models.RunStatusRunning
			row.activity = "starting"
		}

	case stream.EventStep, stream.EventToolCall:
		step, ok := ev.Data.(models.StepEvent)
		if !ok {
			return
		}
		row := v.rows[ev.Department]
		if row == nil {
			return
		}
		row.activity = describeStep(step)
		if step.ToolCall != nil && step.Type == models.StepToolCallResult &&
			step.ToolCall.Status == models.ToolCallCompleted && row.required > 0 {
			row.toolsDone[step.ToolCall.Name] = true
			progress := len(row.toolsDone) * 100 / row.required
			if progress > 100 {
				progress = 100
			}
			if progress > row.progress {
				row.progress = progress
			}
		}

	case stream.EventArtifact:
		if row := v.rows[ev.Department]; row != nil {
			row.artifacts++
		}

	case stream.EventAgentComplete:
		p, ok := ev.Data.(orchestrator.AgentCompletePayload)
		if !ok {
			return
		}
		row := v.rows[p.Department]
		if row == nil {
			return
		}
		row.status = p.Status
		row.progress = p.Progress
		row.err = p.Error
		if p.Status == models.RunStatusCompleted {
			row.activity = "done"
		} else {
			row.activity = ""
		}

	case stream.EventSandboxReady:
		if p, ok := ev.Data.(orchestrator.SandboxReadyPayload); ok {
			v.previewURL = p.URL
		}

	case stream.EventSandboxError:
		if p, ok := ev.Data.(orchestrator.SandboxErrorPayload); ok {
			v.sandboxErr = p.Error
		}

	case stream.EventComplete:
		if p, ok := ev.Data.(orchestrator.CompletePayload); ok {
			if p.PreviewURL != "" {
				v.previewURL = p.PreviewURL
			}
			for d, run := range p.Runs {
				if row := v.rows[d]; row != nil {
					row.status = run.Status
					row.progress = run.Progress
					row.err = run.Error
				}
			}
		}

	case stream.EventError:
		if p, ok := ev.Data.(orchestrator.ErrorPayload); ok {
			v.done = true
			v.success = false
			v.doneMsg = p.Error
		}
	}
}

// View renders the full screen.
func (v *RunView) View() string {
	var b strings.Builder

	title := "boardroom"
	if v.runID != "" {
		title = fmt.Sprintf("boardroom  %s", v.runID)
	}
	b.WriteString(v.titleStyle.Render(title))
	b.WriteString("\n\n")

	for _, d := range v.order {
		row := v.rows[d]
		if row == nil {
			continue
		}
		b.WriteString(v.renderRow(d, row))
		b.WriteString("\n")
	}

	if v.previewURL != "" {
		b.WriteString("\n")
		b.WriteString(v.deptStyle.Render("preview  "))
		b.WriteString(v.previewStyle.Render(v.previewURL))
		b.WriteString("\n")
	}
	if v.sandboxErr != "" {
		b.WriteString("\n")
		b.WriteString(v.errorStyle.Render("sandbox: " + v.sandboxErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.done {
		if v.success {
			b.WriteString(v.statusDone.Render("execution complete"))
		} else {
			b.WriteString(v.errorStyle.Render("execution failed: " + v.doneMsg))
		}
		b.WriteString(v.footerStyle.Render("  (q to quit)"))
	} else {
		b.WriteString(v.spin.View())
		b.WriteString(v.footerStyle.Render(" running  (q to abort)"))
	}
	b.WriteString("\n")

	return b.String()
}

func (v *RunView) renderRow(d models.Department, row *deptRow) string {
	icon, style := v.statusIcon(row.status)

	name := string(d)
	if len(name) < 12 {
		name += strings.Repeat(" ", 12-len(name))
	}

	bar := v.renderBar(row.progress)

	line := fmt.Sprintf("%s %s %s %3d%%", style.Render(icon), v.deptStyle.Render(name), bar, row.progress)
	if row.artifacts > 0 {
		line += v.activityStyle.Render(fmt.Sprintf("  %d artifacts", row.artifacts))
	}
	if row.err != "" {
		line += "  " + v.errorStyle.Render(truncate(row.err, 48))
	} else if row.activity != "" {
		line += "  " + v.activityStyle.Render(truncate(row.activity, 48))
	}
	return line
}

func (v *RunView) statusIcon(status models.RunStatus) (string, lipgloss.Style) {
	switch status {
	case models.RunStatusRunning:
		return iconRunning, v.statusRunning
	case models.RunStatusCompleted:
		return iconDone, v.statusDone
	case models.RunStatusError:
		return iconFailed, v.statusFailed
	default:
		return iconPending, v.statusPending
	}
}

func (v *RunView) renderBar(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * progressBarWidth / 100
	return v.barFillStyle.Render(strings.Repeat("█", filled)) +
		v.barEmptyStyle.Render(strings.Repeat("░", progressBarWidth-filled))
}

// describeStep compresses a step event into one activity line.
func describeStep(step models.StepEvent) string {
	switch step.Type {
	case models.StepThinking:
		return "thinking"
	case models.StepTextOutput:
		return truncate(strings.TrimSpace(step.Text), 48)
	case models.StepToolCallStart:
		if step.ToolCall != nil {
			return step.ToolCall.Name + "..."
		}
	case models.StepToolCallResult:
		if step.ToolCall != nil {
			if step.ToolCall.Status == models.ToolCallError {
				return step.ToolCall.Name + " failed"
			}
			return step.ToolCall.Name + " done"
		}
	}
	return string(step.Type)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
