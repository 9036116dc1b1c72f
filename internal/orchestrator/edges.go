package orchestrator

import (
	"encoding/json"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// Transform maps the source department's artifacts into the target's
// ExecutionRequest. It receives a copy of the base request and returns the
// request the target runs with.
type Transform func(artifacts []models.Artifact, req models.ExecutionRequest) models.ExecutionRequest

// DependencyEdge defers the target department until the source completes,
// feeding the source's artifacts into the target's request. Each edge fires
// at most once per execution.
type DependencyEdge struct {
	Source    models.Department
	Target    models.Department
	Transform Transform
}

// DefaultEdges returns the shipped dependency set. Engineering waits on
// marketing so the landing page is generated with real brand copy, palette,
// and logo instead of placeholders. Everything else runs in parallel.
func DefaultEdges() []DependencyEdge {
	return []DependencyEdge{
		{
			Source:    models.DepartmentMarketing,
			Target:    models.DepartmentEngineering,
			Transform: brandHandoff,
		},
	}
}

// brandHandoff flattens marketing artifacts into brand variables the
// engineering brief interpolates. Binary logo data stays out; only the
// format and description travel.
func brandHandoff(artifacts []models.Artifact, req models.ExecutionRequest) models.ExecutionRequest {
	if req.BrandVariables == nil {
		req.BrandVariables = make(map[string]string)
	}

	for _, a := range artifacts {
		switch a.Type {
		case models.ArtifactBrandIdentity:
			var identity struct {
				Mission string `json:"mission"`
				Tagline string `json:"tagline"`
			}
			if err := json.Unmarshal(a.Data, &identity); err != nil {
				continue
			}
			setIfPresent(req.BrandVariables, "tagline", identity.Tagline)
			setIfPresent(req.BrandVariables, "mission", identity.Mission)

		case models.ArtifactColorPalette:
			var palette struct {
				Colors []struct {
					Name string `json:"name"`
					Hex  string `json:"hex"`
				} `json:"colors"`
			}
			if err := json.Unmarshal(a.Data, &palette); err != nil {
				continue
			}
			keys := []string{"primary_color", "secondary_color", "accent_color"}
			for i, c := range palette.Colors {
				if i >= len(keys) {
					break
				}
				setIfPresent(req.BrandVariables, keys[i], c.Hex)
			}

		case models.ArtifactLogo:
			var logo struct {
				Description string `json:"description"`
				Format      string `json:"format"`
			}
			if err := json.Unmarshal(a.Data, &logo); err != nil {
				continue
			}
			setIfPresent(req.BrandVariables, "logo_description", logo.Description)
			setIfPresent(req.BrandVariables, "logo_format", logo.Format)

		case models.ArtifactMarketingCopy:
			var copyBlock struct {
				Headline     string `json:"headline"`
				Subheadline  string `json:"subheadline"`
				CallToAction string `json:"call_to_action"`
			}
			if err := json.Unmarshal(a.Data, &copyBlock); err != nil {
				continue
			}
			setIfPresent(req.BrandVariables, "headline", copyBlock.Headline)
			setIfPresent(req.BrandVariables, "subheadline", copyBlock.Subheadline)
			setIfPresent(req.BrandVariables, "call_to_action", copyBlock.CallToAction)
		}
	}
	return req
}

func setIfPresent(vars map[string]string, key, value string) {
	if value != "" {
		vars[key] = value
	}
}
