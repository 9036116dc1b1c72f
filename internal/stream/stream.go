// Package stream is the transport between running departments and remote
// observers. A Stream carries typed events for one top-level execution and
// closes exactly once; writes after closure are dropped, never panic, since
// the observer may already be gone.
package stream

import (
	"log"
	"sync"
	"time"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// EventType names one event on the channel.
type EventType string

const (
	// EventStart opens an execution and carries the resolved request.
	EventStart EventType = "start"
	// EventAgentStart announces a department run entering running.
	EventAgentStart EventType = "agent_start"
	// EventStep carries one StepEvent from a department.
	EventStep EventType = "step"
	// EventToolCall carries a tool call status change.
	EventToolCall EventType = "tool_call"
	// EventAgentComplete announces a department reaching a terminal status.
	EventAgentComplete EventType = "agent_complete"
	// EventArtifact announces a newly published artifact (payload elided).
	EventArtifact EventType = "artifact"
	// EventSandboxReady carries the preview address of a live sandbox.
	EventSandboxReady EventType = "sandbox_ready"
	// EventSandboxError reports a non-fatal sandbox provisioning failure.
	EventSandboxError EventType = "sandbox_error"
	// EventComplete terminates the stream with the full result set.
	EventComplete EventType = "complete"
	// EventError terminates the stream with a failure.
	EventError EventType = "error"
)

// Terminal returns true for the two stream-ending event types.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is one entry on the channel. Data is marshaled at the transport
// boundary (SSE writer, TUI) rather than here.
type Event struct {
	Type       EventType         `json:"type"`
	Department models.Department `json:"department,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// sendTimeout is how long a send waits for a slow observer before dropping.
const sendTimeout = 100 * time.Millisecond

// Stream is a close-once event channel for one execution.
type Stream struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped uint64
}

// New creates a Stream with the given buffer size.
func New(buffer int) *Stream {
	return &Stream{ch: make(chan Event, buffer)}
}

// Send delivers an event to observers. Sending a terminal event also closes
// the stream, so nothing can follow it. Sends on a closed stream are dropped
// silently; sends to a full buffer are dropped after a short wait.
func (s *Stream) Send(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- ev:
	default:
		select {
		case s.ch <- ev:
		case <-time.After(sendTimeout):
			s.dropped++
			if s.dropped%10 == 1 {
				log.Printf("[stream] WARNING: observer not draining, dropped event (total dropped: %d): type=%s", s.dropped, ev.Type)
			}
		}
	}

	// A terminal event closes the stream even when a stalled observer forced
	// its payload to be dropped; the closed channel is what unblocks anyone
	// ranging over Events().
	if ev.Type.Terminal() {
		s.closed = true
		close(s.ch)
	}
}

// Close closes the stream without a terminal event, for producer panics and
// cancellation paths. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Closed reports whether the stream has been closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Dropped returns how many events were discarded for slow observers.
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Events returns the read side of the stream. The channel is closed after
// the terminal event (or Close), so observers can range over it.
func (s *Stream) Events() <-chan Event {
	return s.ch
}
