package department

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

const engineeringSystemPrompt = `You are the software engineering department of a company-building platform.
Generate a landing page as a small Vite + vanilla JS project. Use write_source_file
for every file (index.html, src/main.js, src/style.css at minimum), applying the
brand palette, logo, and marketing copy provided in the brief. Finish with a single
summarize_project call. Do not ask clarifying questions.`

func engineeringSpec() *Spec {
	return &Spec{
		Department:    models.DepartmentEngineering,
		SystemPrompt:  engineeringSystemPrompt,
		RequiredTools: 2,
		MaxTurns:      16,
		artifacts: map[string]models.ArtifactType{
			"write_source_file": models.ArtifactSourceFile,
			"summarize_project": models.ArtifactProjectSummary,
		},
		Tools: []Tool{
			{
				Name:        "write_source_file",
				Description: "Emit one generated source file with its project-relative path.",
				Properties: map[string]interface{}{
					"path":     stringProp("Project-relative file path, e.g. src/main.js"),
					"content":  stringProp("Full file content"),
					"language": stringProp("Language hint, e.g. html, css, javascript"),
				},
				Required: []string{"path", "content"},
				Run:      runSourceFile,
			},
			{
				Name:        "summarize_project",
				Description: "Summarize the generated project: framework, files, and setup steps.",
				Properties: map[string]interface{}{
					"framework":          stringProp("Framework or stack used"),
					"files":              arrayProp("Paths of all generated files", stringProp("A file path")),
					"setup_instructions": stringProp("How to run the project locally"),
				},
				Required: []string{"framework", "files"},
				Run:      runProjectSummary,
			},
		},
	}
}

func runSourceFile(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Path     string `json:"path"`
		Content  string `json:"content"`
		Language string `json:"language"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Path == "" || params.Content == "" {
		return nil, fmt.Errorf("source file requires path and content")
	}

	clean := path.Clean(params.Path)
	if path.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("file path must be project-relative: %s", params.Path)
	}

	return json.Marshal(map[string]interface{}{
		"path":     clean,
		"language": params.Language,
		"size":     len(params.Content),
		"content":  params.Content,
	})
}

func runProjectSummary(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Framework         string   `json:"framework"`
		Files             []string `json:"files"`
		SetupInstructions string   `json:"setup_instructions"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Framework == "" || len(params.Files) == 0 {
		return nil, fmt.Errorf("project summary requires framework and files")
	}
	return json.Marshal(map[string]interface{}{
		"framework":          params.Framework,
		"files":              params.Files,
		"setup_instructions": params.SetupInstructions,
	})
}
