// Package server exposes the HTTP surface: department execution with a
// streamed response, conversational chat that can trigger executions, and
// a health check.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/orchestrator"
	"github.com/sgranger-dev/boardroom/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	// Coordinator starts department executions.
	Coordinator *orchestrator.Coordinator
	// Caller is the model-call capability for chat turns.
	Caller api.Caller
	// Store persists conversation threads. Persistence is best effort;
	// store failures are logged and swallowed.
	Store store.Store
}

// Server is the boardroom HTTP server.
type Server struct {
	echo  *echo.Echo
	coord *orchestrator.Coordinator
	chat  *chatSession
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:  e,
		coord: opts.Coordinator,
		chat:  newChatSession(opts.Caller, opts.Store),
	}

	e.GET("/healthz", s.handleHealth)
	e.POST("/execute/:department", s.handleExecute)
	e.POST("/chat", s.handleChat)
	return s
}

// Start begins serving on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
