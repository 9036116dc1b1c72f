// Package models defines the core types shared across the boardroom engine.
package models

// Department identifies one independently schedulable agent pipeline.
type Department string

const (
	// DepartmentMarketing produces brand identity, palette, logo, and copy.
	DepartmentMarketing Department = "marketing"
	// DepartmentBusiness produces market analysis and strategy documents.
	DepartmentBusiness Department = "business"
	// DepartmentFinance produces revenue, cost, and funding reports.
	DepartmentFinance Department = "finance"
	// DepartmentEngineering generates landing-page source files.
	DepartmentEngineering Department = "engineering"
)

// AllDepartments lists every department in a stable order.
func AllDepartments() []Department {
	return []Department{
		DepartmentMarketing,
		DepartmentBusiness,
		DepartmentFinance,
		DepartmentEngineering,
	}
}

// Valid returns true if the department is a known value.
func (d Department) Valid() bool {
	switch d {
	case DepartmentMarketing, DepartmentBusiness, DepartmentFinance, DepartmentEngineering:
		return true
	default:
		return false
	}
}

// RunStatus represents the lifecycle state of a DepartmentRun.
// Status only moves forward: pending -> running -> completed|error.
type RunStatus string

const (
	// RunStatusPending indicates the run has not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is in flight.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the run finished successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusError indicates the run failed.
	RunStatusError RunStatus = "error"
)

// Terminal returns true if the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}

// CanTransition reports whether a move from s to next is a forward transition.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunStatusPending:
		return next == RunStatusRunning || next.Terminal()
	case RunStatusRunning:
		return next.Terminal()
	default:
		return false
	}
}
