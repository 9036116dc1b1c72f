package sandbox

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const defaultSettleTime = 3 * time.Second

// Manager owns the registry of live sandboxes for the process. Creation
// seeds the project skeleton and waits a bounded settle time so the dev
// server is reachable before the preview address is handed out.
type Manager struct {
	mu       sync.RWMutex
	provider Provider
	handles  map[string]*Handle
	settle   time.Duration
}

// NewManager creates a manager backed by the given provider. A settle
// duration of zero falls back to the default.
func NewManager(provider Provider, settle time.Duration) *Manager {
	if settle <= 0 {
		settle = defaultSettleTime
	}
	return &Manager{
		provider: provider,
		handles:  make(map[string]*Handle),
		settle:   settle,
	}
}

// Create provisions a sandbox, seeds the skeleton, and waits for the dev
// server to settle. The returned handle is registered for later teardown.
func (m *Manager) Create(ctx context.Context) (*Handle, error) {
	handle, err := m.provider.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision sandbox: %w", err)
	}

	if err := m.provider.Write(ctx, handle.ID, SkeletonFiles()); err != nil {
		// Clean up the half-built environment before reporting failure.
		if derr := m.provider.Destroy(context.WithoutCancel(ctx), handle.ID); derr != nil {
			log.Printf("[sandbox] failed to destroy %s after seed failure: %v", handle.ID, derr)
		}
		return nil, fmt.Errorf("seed sandbox %s: %w", handle.ID, err)
	}

	select {
	case <-time.After(m.settle):
	case <-ctx.Done():
		if derr := m.provider.Destroy(context.WithoutCancel(ctx), handle.ID); derr != nil {
			log.Printf("[sandbox] failed to destroy %s after cancellation: %v", handle.ID, derr)
		}
		return nil, ctx.Err()
	}

	m.mu.Lock()
	m.handles[handle.ID] = handle
	m.mu.Unlock()

	log.Printf("[sandbox] created %s at %s", handle.ID, handle.URL)
	return handle, nil
}

// Write overlays files onto a registered sandbox.
func (m *Manager) Write(ctx context.Context, id string, files []File) error {
	m.mu.RLock()
	_, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return m.provider.Write(ctx, id, files)
}

// Lookup returns the registered handle for id, or ErrNotFound.
func (m *Manager) Lookup(id string) (*Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// Destroy tears down a sandbox and removes it from the registry. The
// registry entry is removed even if the provider call fails, so a dead
// environment is never retried forever.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.handles[id]
	delete(m.handles, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if err := m.provider.Destroy(ctx, id); err != nil {
		return fmt.Errorf("destroy sandbox %s: %w", id, err)
	}
	log.Printf("[sandbox] destroyed %s", id)
	return nil
}

// DestroyAll tears down every registered sandbox. Failures are logged,
// not returned; teardown is best effort.
func (m *Manager) DestroyAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.provider.Destroy(ctx, id); err != nil {
			log.Printf("[sandbox] teardown of %s failed: %v", id, err)
		}
	}
}

// Count returns the number of live sandboxes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}
