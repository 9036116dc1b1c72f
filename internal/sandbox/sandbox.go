// Package sandbox manages ephemeral preview environments for generated code.
// Environments are provisioned through a Provider, seeded with a buildable
// project skeleton, and tracked in an in-process registry so they can be
// torn down when a run ends.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a handle id is not in the registry.
var ErrNotFound = errors.New("sandbox: handle not found")

// File is a single file to overlay onto a sandbox.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Handle identifies a live sandbox and its externally reachable address.
type Handle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider provisions and tears down sandbox environments.
type Provider interface {
	// Create provisions a fresh environment and starts its dev server.
	Create(ctx context.Context) (*Handle, error)
	// Write overlays files onto the environment, creating directories as needed.
	Write(ctx context.Context, id string, files []File) error
	// Destroy tears the environment down.
	Destroy(ctx context.Context, id string) error
}
