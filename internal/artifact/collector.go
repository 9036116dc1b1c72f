// Package artifact normalizes completed tool calls into the typed outputs
// surfaced to the user.
package artifact

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

// Collector accumulates artifacts for one top-level execution. It is
// idempotent over tool-call ids: re-processing the same completed call
// never duplicates an artifact. Artifacts are append-only once published.
type Collector struct {
	mu        sync.Mutex
	seen      map[string]bool
	artifacts []models.Artifact
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

// Collect classifies a completed tool call into an artifact using the
// department's name-to-type table. It returns the published artifact, or
// nil when the call is not completed, not classified, or already seen.
func (c *Collector) Collect(spec *department.Spec, call models.ToolCallEvent) *models.Artifact {
	if call.Status != models.ToolCallCompleted {
		return nil
	}
	artifactType := spec.ArtifactType(call.Name)
	if artifactType == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[call.ID] {
		return nil
	}
	c.seen[call.ID] = true

	a := models.Artifact{
		ID:         "art-" + call.ID,
		Department: call.Department,
		Type:       artifactType,
		Title:      titleFor(artifactType, call.Result),
		Data:       call.Result,
		CreatedAt:  time.Now(),
	}
	c.artifacts = append(c.artifacts, a)
	return &a
}

// Artifacts returns a snapshot of everything collected so far, in
// publication order.
func (c *Collector) Artifacts() []models.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Artifact, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}

// ByDepartment returns the snapshot filtered to one department.
func (c *Collector) ByDepartment(d models.Department) []models.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Artifact
	for _, a := range c.artifacts {
		if a.Department == d {
			out = append(out, a)
		}
	}
	return out
}

// Count returns how many artifacts have been published.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.artifacts)
}

// titleFor derives a short label from well-known payload fields, falling
// back to the artifact type.
func titleFor(t models.ArtifactType, result json.RawMessage) string {
	var payload struct {
		Title    string `json:"title"`
		Headline string `json:"headline"`
		Tagline  string `json:"tagline"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(result, &payload); err == nil {
		switch {
		case payload.Title != "":
			return payload.Title
		case payload.Headline != "":
			return payload.Headline
		case payload.Path != "":
			return payload.Path
		case payload.Tagline != "":
			return payload.Tagline
		}
	}
	return string(t)
}
