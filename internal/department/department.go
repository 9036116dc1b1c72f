// Package department defines the agent pipelines the engine can run:
// their system prompts, declared tool sets, and artifact classification.
// Tools here only validate and package structured data; the only two kinds
// with side effects are image generation and document-store writes, both
// reached through the Deps collaborators.
package department

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// ImageGenerator produces image bytes from a prompt. Implementations call
// an external image service; a nil generator makes logo tools fall back to
// an inline placeholder.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// DocumentWriter persists a generated document. Write failures are
// best-effort for callers: tools report them on the tool result but do not
// fail the department.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, id, kind, title string, data []byte) error
}

// Deps bundles the external collaborators tools may use.
type Deps struct {
	Images    ImageGenerator
	Documents DocumentWriter
}

// Tool is one named, schema-typed capability declared to the provider.
// Run validates the input at the boundary and returns a structured result.
type Tool struct {
	// Name is the tool name as declared to the provider.
	Name string
	// Description tells the model when to use the tool.
	Description string
	// Properties is the JSON schema properties map for the input.
	Properties map[string]interface{}
	// Required lists required input fields.
	Required []string
	// Run validates and packages the input into a structured result.
	Run func(ctx context.Context, deps Deps, input json.RawMessage) (json.RawMessage, error)
}

// Spec describes one department pipeline.
type Spec struct {
	// Department identifies the pipeline.
	Department models.Department
	// SystemPrompt is the department-specific provider instruction.
	SystemPrompt string
	// Tools is the closed tool set declared on every provider call.
	Tools []Tool
	// RequiredTools is how many distinct tools must complete for the
	// department to count as done before the provider stream ends.
	RequiredTools int
	// MaxTurns bounds the provider call loop.
	MaxTurns int
	// artifacts maps tool name to the artifact type its result yields.
	artifacts map[string]models.ArtifactType
}

// ForDepartment returns the spec for the given department.
func ForDepartment(d models.Department) (*Spec, error) {
	switch d {
	case models.DepartmentMarketing:
		return marketingSpec(), nil
	case models.DepartmentBusiness:
		return businessSpec(), nil
	case models.DepartmentFinance:
		return financeSpec(), nil
	case models.DepartmentEngineering:
		return engineeringSpec(), nil
	default:
		return nil, fmt.Errorf("unknown department: %s", d)
	}
}

// Tool returns the named tool, or nil if the department does not declare it.
func (s *Spec) Tool(name string) *Tool {
	for i := range s.Tools {
		if s.Tools[i].Name == name {
			return &s.Tools[i]
		}
	}
	return nil
}

// ArtifactType returns the artifact type a completed call to the named tool
// yields, or "" if the tool produces no artifact.
func (s *Spec) ArtifactType(tool string) models.ArtifactType {
	return s.artifacts[tool]
}

// ProviderTools converts the department's tool set to provider schemas.
func (s *Spec) ProviderTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(s.Tools))
	for _, t := range s.Tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Properties,
					Required:   t.Required,
				},
			},
		})
	}
	return out
}

// UserPrompt renders the opening user message for a department run.
func (s *Spec) UserPrompt(req models.ExecutionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nIndustry: %s\nTarget audience: %s\nProduct: %s\nDifferentiation: %s\nBrand tone: %s\n",
		req.CompanyName, req.Industry, req.TargetAudience, req.ProductDescription, req.Differentiation, req.BrandTone)
	if len(req.Competitors) > 0 {
		fmt.Fprintf(&b, "Competitors: %s\n", strings.Join(req.Competitors, ", "))
	}
	for k, v := range req.BrandVariables {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	b.WriteString("\nProduce your deliverables by calling every one of your tools.")
	return b.String()
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func arrayProp(desc string, items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "description": desc, "items": items}
}

func numberProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func objectItems(props map[string]interface{}, required ...string) map[string]interface{} {
	item := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		item["required"] = required
	}
	return item
}

// decode unmarshals tool input into params and rejects malformed payloads.
func decode(input json.RawMessage, params interface{}) error {
	if err := json.Unmarshal(input, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
