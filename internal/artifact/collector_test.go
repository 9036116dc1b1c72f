package artifact

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/sgranger-dev/boardroom/internal/department"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

func marketingCall(id, tool string, result string) models.ToolCallEvent {
	return models.ToolCallEvent{
		ID:         id,
		Department: models.DepartmentMarketing,
		Name:       tool,
		Status:     models.ToolCallCompleted,
		Result:     json.RawMessage(result),
	}
}

func TestCollectClassifiesByDepartmentTable(t *testing.T) {
	spec, _ := department.ForDepartment(models.DepartmentMarketing)
	c := NewCollector()

	a := c.Collect(spec, marketingCall("tc1", "generate_color_palette", `{"colors":[]}`))
	if a == nil {
		t.Fatal("expected an artifact for a classified tool")
	}
	if a.Type != models.ArtifactColorPalette {
		t.Errorf("type = %s, want color_palette", a.Type)
	}
	if a.Department != models.DepartmentMarketing {
		t.Errorf("department = %s", a.Department)
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	spec, _ := department.ForDepartment(models.DepartmentMarketing)
	c := NewCollector()
	call := marketingCall("tc1", "generate_logo", `{"description":"wave"}`)

	if a := c.Collect(spec, call); a == nil {
		t.Fatal("first collect should publish")
	}
	if a := c.Collect(spec, call); a != nil {
		t.Error("second collect of the same id must not duplicate")
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
}

func TestCollectIgnoresIncompleteAndUnknown(t *testing.T) {
	spec, _ := department.ForDepartment(models.DepartmentMarketing)
	c := NewCollector()

	pending := marketingCall("tc1", "generate_logo", `{}`)
	pending.Status = models.ToolCallRunning
	if a := c.Collect(spec, pending); a != nil {
		t.Error("running call must not publish")
	}

	failed := marketingCall("tc2", "generate_logo", `{}`)
	failed.Status = models.ToolCallError
	if a := c.Collect(spec, failed); a != nil {
		t.Error("failed call must not publish")
	}

	if a := c.Collect(spec, marketingCall("tc3", "not_a_tool", `{}`)); a != nil {
		t.Error("unclassified tool must not publish")
	}
}

func TestCollectConcurrentSameID(t *testing.T) {
	spec, _ := department.ForDepartment(models.DepartmentMarketing)
	c := NewCollector()
	call := marketingCall("tc1", "write_marketing_copy", `{"headline":"Go"}`)

	var wg sync.WaitGroup
	published := make(chan *models.Artifact, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a := c.Collect(spec, call); a != nil {
				published <- a
			}
		}()
	}
	wg.Wait()
	close(published)

	count := 0
	for range published {
		count++
	}
	if count != 1 {
		t.Errorf("%d goroutines published, want exactly 1", count)
	}
}

func TestTitleDerivation(t *testing.T) {
	spec, _ := department.ForDepartment(models.DepartmentMarketing)
	engSpec, _ := department.ForDepartment(models.DepartmentEngineering)
	c := NewCollector()

	a := c.Collect(spec, marketingCall("tc1", "write_marketing_copy", `{"headline":"Move Better"}`))
	if a.Title != "Move Better" {
		t.Errorf("title = %q, want headline", a.Title)
	}

	fileCall := models.ToolCallEvent{
		ID: "tc2", Department: models.DepartmentEngineering,
		Name: "write_source_file", Status: models.ToolCallCompleted,
		Result: json.RawMessage(`{"path":"src/main.js","content":"x"}`),
	}
	a = c.Collect(engSpec, fileCall)
	if a.Title != "src/main.js" {
		t.Errorf("title = %q, want path", a.Title)
	}
}

func TestByDepartment(t *testing.T) {
	mkt, _ := department.ForDepartment(models.DepartmentMarketing)
	fin, _ := department.ForDepartment(models.DepartmentFinance)
	c := NewCollector()

	c.Collect(mkt, marketingCall("tc1", "generate_logo", `{}`))
	finCall := models.ToolCallEvent{
		ID: "tc2", Department: models.DepartmentFinance,
		Name: "plan_funding", Status: models.ToolCallCompleted,
		Result: json.RawMessage(`{}`),
	}
	c.Collect(fin, finCall)

	if got := len(c.ByDepartment(models.DepartmentFinance)); got != 1 {
		t.Errorf("finance artifacts = %d, want 1", got)
	}
	if got := len(c.ByDepartment(models.DepartmentEngineering)); got != 0 {
		t.Errorf("engineering artifacts = %d, want 0", got)
	}
}
