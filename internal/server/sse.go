package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sgranger-dev/boardroom/internal/stream"
)

// sseWriter streams events to one HTTP response. Each event goes out as a
// named SSE event with a JSON body, flushed immediately.
type sseWriter struct {
	c       echo.Context
	flusher http.Flusher
}

// newSSEWriter prepares the response for streaming. It fails when the
// underlying writer cannot flush.
func newSSEWriter(c echo.Context) (*sseWriter, error) {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{c: c, flusher: flusher}, nil
}

// write sends one event. A write error means the client went away.
func (w *sseWriter) write(ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.c.Response().Writer, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// pump forwards events until the channel closes or the client disconnects.
// The channel closes after the terminal event, so no stop condition beyond
// the range is needed.
func (w *sseWriter) pump(events <-chan stream.Event) error {
	clientGone := w.c.Request().Context().Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.write(ev); err != nil {
				return err
			}
		case <-clientGone:
			return w.c.Request().Context().Err()
		}
	}
}
