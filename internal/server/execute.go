package server

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// departmentAll selects every department in one dependency-managed run.
const departmentAll = "all"

// handleExecute starts department execution and streams its events until
// the terminal event. POST /execute/:department with an ExecutionRequest
// body; the department "all" runs the full set.
func (s *Server) handleExecute(c echo.Context) error {
	var req models.ExecutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var departments []models.Department
	name := c.Param("department")
	if name == departmentAll {
		departments = models.AllDepartments()
	} else {
		d := models.Department(name)
		if !d.Valid() {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown department: " + name})
		}
		departments = []models.Department{d}
	}

	// The execution outlives the request context on purpose: a client
	// disconnect cancels it explicitly below, and nothing else should.
	exec, err := s.coord.Start(context.Background(), req, departments)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	w, err := newSSEWriter(c)
	if err != nil {
		exec.Cancel()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := w.pump(exec.Events()); err != nil {
		exec.Cancel()
		log.Printf("[server] execute stream for %s ended early: %v", exec.ID, err)
	}
	return nil
}
