package department

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

const marketingSystemPrompt = `You are the marketing department of a company-building platform.
Given a company brief, produce a complete brand package by calling ALL of your tools:
generate_brand_identity, generate_color_palette, generate_logo, and write_marketing_copy.
Keep the output consistent with the requested brand tone. Do not ask clarifying
questions; work with the brief as given.`

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func marketingSpec() *Spec {
	return &Spec{
		Department:    models.DepartmentMarketing,
		SystemPrompt:  marketingSystemPrompt,
		RequiredTools: 4,
		MaxTurns:      8,
		artifacts: map[string]models.ArtifactType{
			"generate_brand_identity": models.ArtifactBrandIdentity,
			"generate_color_palette":  models.ArtifactColorPalette,
			"generate_logo":           models.ArtifactLogo,
			"write_marketing_copy":    models.ArtifactMarketingCopy,
		},
		Tools: []Tool{
			{
				Name:        "generate_brand_identity",
				Description: "Record the brand identity: mission, values, personality, and tagline.",
				Properties: map[string]interface{}{
					"mission":     stringProp("One-sentence company mission"),
					"values":      arrayProp("Three to five brand values", stringProp("A brand value")),
					"personality": stringProp("Brand personality in a short phrase"),
					"tagline":     stringProp("Short memorable tagline"),
				},
				Required: []string{"mission", "values", "tagline"},
				Run:      runBrandIdentity,
			},
			{
				Name:        "generate_color_palette",
				Description: "Record the brand color palette as named hex swatches with usage notes.",
				Properties: map[string]interface{}{
					"colors": arrayProp("Four to six palette entries", objectItems(map[string]interface{}{
						"name":  stringProp("Swatch name, e.g. Primary"),
						"hex":   stringProp("Hex value, e.g. #1A2B3C"),
						"usage": stringProp("Where this color is used"),
					}, "name", "hex")),
				},
				Required: []string{"colors"},
				Run:      runColorPalette,
			},
			{
				Name:        "generate_logo",
				Description: "Generate a logo image from a visual description.",
				Properties: map[string]interface{}{
					"description": stringProp("Visual description of the logo"),
					"style":       stringProp("Style, e.g. minimal, geometric, hand-drawn"),
				},
				Required: []string{"description"},
				Run:      runLogo,
			},
			{
				Name:        "write_marketing_copy",
				Description: "Record landing-page marketing copy: headline, subheadline, benefits, call to action.",
				Properties: map[string]interface{}{
					"headline":       stringProp("Landing page headline"),
					"subheadline":    stringProp("Supporting subheadline"),
					"benefits":       arrayProp("Three customer benefits", stringProp("A benefit statement")),
					"call_to_action": stringProp("Call-to-action button text"),
				},
				Required: []string{"headline", "subheadline", "call_to_action"},
				Run:      runMarketingCopy,
			},
		},
	}
}

func runBrandIdentity(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Mission     string   `json:"mission"`
		Values      []string `json:"values"`
		Personality string   `json:"personality"`
		Tagline     string   `json:"tagline"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Mission == "" || params.Tagline == "" {
		return nil, fmt.Errorf("brand identity requires mission and tagline")
	}
	return json.Marshal(map[string]interface{}{
		"mission":     params.Mission,
		"values":      params.Values,
		"personality": params.Personality,
		"tagline":     params.Tagline,
	})
}

func runColorPalette(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Colors []struct {
			Name  string `json:"name"`
			Hex   string `json:"hex"`
			Usage string `json:"usage"`
		} `json:"colors"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.Colors) == 0 {
		return nil, fmt.Errorf("palette requires at least one color")
	}
	for _, c := range params.Colors {
		if !hexColorRe.MatchString(c.Hex) {
			return nil, fmt.Errorf("invalid hex color %q for swatch %q", c.Hex, c.Name)
		}
	}
	return json.Marshal(map[string]interface{}{"colors": params.Colors})
}

// placeholderLogo is returned when no image generator is configured so the
// rest of the pipeline still receives a renderable asset.
func placeholderLogo(initial string) []byte {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="128" height="128"><rect width="128" height="128" rx="24" fill="#1F2937"/><text x="64" y="80" font-size="56" text-anchor="middle" fill="#F9FAFB" font-family="sans-serif">%s</text></svg>`, initial)
	return []byte(svg)
}

func runLogo(ctx context.Context, deps Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Description string `json:"description"`
		Style       string `json:"style"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Description == "" {
		return nil, fmt.Errorf("logo requires a description")
	}

	format := "svg"
	var img []byte
	if deps.Images != nil {
		generated, err := deps.Images.Generate(ctx, params.Description+" logo, "+params.Style)
		if err != nil {
			return nil, fmt.Errorf("image generation failed: %w", err)
		}
		img = generated
		format = "png"
	} else {
		initial := "?"
		for _, r := range params.Description {
			initial = string(r)
			break
		}
		img = placeholderLogo(initial)
	}

	return json.Marshal(map[string]interface{}{
		"description": params.Description,
		"style":       params.Style,
		"format":      format,
		"image_data":  base64.StdEncoding.EncodeToString(img),
	})
}

func runMarketingCopy(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Headline     string   `json:"headline"`
		Subheadline  string   `json:"subheadline"`
		Benefits     []string `json:"benefits"`
		CallToAction string   `json:"call_to_action"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Headline == "" || params.CallToAction == "" {
		return nil, fmt.Errorf("copy requires headline and call_to_action")
	}
	return json.Marshal(map[string]interface{}{
		"headline":       params.Headline,
		"subheadline":    params.Subheadline,
		"benefits":       params.Benefits,
		"call_to_action": params.CallToAction,
	})
}
