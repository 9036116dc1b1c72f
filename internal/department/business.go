package department

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

const businessSystemPrompt = `You are the business strategy department of a company-building platform.
Given a company brief, produce a strategy package by calling ALL of your tools:
analyze_market, define_business_model, plan_go_to_market, and generate_slide_deck.
Ground every claim in the brief; do not ask clarifying questions.`

func businessSpec() *Spec {
	return &Spec{
		Department:    models.DepartmentBusiness,
		SystemPrompt:  businessSystemPrompt,
		RequiredTools: 4,
		MaxTurns:      8,
		artifacts: map[string]models.ArtifactType{
			"analyze_market":        models.ArtifactMarketAnalysis,
			"define_business_model": models.ArtifactBusinessModel,
			"plan_go_to_market":     models.ArtifactGoToMarket,
			"generate_slide_deck":   models.ArtifactSlideDeck,
		},
		Tools: []Tool{
			{
				Name:        "analyze_market",
				Description: "Record the market analysis: size, trends, and opportunities.",
				Properties: map[string]interface{}{
					"market_size":   stringProp("Estimated market size with units"),
					"trends":        arrayProp("Key market trends", stringProp("A trend")),
					"opportunities": arrayProp("Openings the company can exploit", stringProp("An opportunity")),
				},
				Required: []string{"market_size", "trends"},
				Run:      runMarketAnalysis,
			},
			{
				Name:        "define_business_model",
				Description: "Record the business model: revenue streams, pricing, key partners.",
				Properties: map[string]interface{}{
					"revenue_streams": arrayProp("How the company makes money", stringProp("A revenue stream")),
					"pricing":         stringProp("Pricing approach"),
					"key_partners":    arrayProp("Critical partners", stringProp("A partner")),
				},
				Required: []string{"revenue_streams", "pricing"},
				Run:      runBusinessModel,
			},
			{
				Name:        "plan_go_to_market",
				Description: "Record the go-to-market plan as phased actions and channels.",
				Properties: map[string]interface{}{
					"phases": arrayProp("Launch phases in order", objectItems(map[string]interface{}{
						"name":    stringProp("Phase name"),
						"actions": arrayProp("Actions in this phase", stringProp("An action")),
					}, "name")),
					"channels": arrayProp("Acquisition channels", stringProp("A channel")),
				},
				Required: []string{"phases"},
				Run:      runGoToMarket,
			},
			{
				Name:        "generate_slide_deck",
				Description: "Assemble the pitch deck from titled slides with bullet points.",
				Properties: map[string]interface{}{
					"title": stringProp("Deck title"),
					"slides": arrayProp("Slides in presentation order", objectItems(map[string]interface{}{
						"heading": stringProp("Slide heading"),
						"bullets": arrayProp("Bullet points", stringProp("A bullet")),
					}, "heading")),
				},
				Required: []string{"title", "slides"},
				Run:      runSlideDeck,
			},
		},
	}
}

func runMarketAnalysis(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		MarketSize    string   `json:"market_size"`
		Trends        []string `json:"trends"`
		Opportunities []string `json:"opportunities"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.MarketSize == "" {
		return nil, fmt.Errorf("market analysis requires market_size")
	}
	return json.Marshal(map[string]interface{}{
		"market_size":   params.MarketSize,
		"trends":        params.Trends,
		"opportunities": params.Opportunities,
	})
}

func runBusinessModel(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		RevenueStreams []string `json:"revenue_streams"`
		Pricing        string   `json:"pricing"`
		KeyPartners    []string `json:"key_partners"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.RevenueStreams) == 0 {
		return nil, fmt.Errorf("business model requires at least one revenue stream")
	}
	return json.Marshal(map[string]interface{}{
		"revenue_streams": params.RevenueStreams,
		"pricing":         params.Pricing,
		"key_partners":    params.KeyPartners,
	})
}

func runGoToMarket(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Phases []struct {
			Name    string   `json:"name"`
			Actions []string `json:"actions"`
		} `json:"phases"`
		Channels []string `json:"channels"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.Phases) == 0 {
		return nil, fmt.Errorf("go-to-market plan requires at least one phase")
	}
	return json.Marshal(map[string]interface{}{
		"phases":   params.Phases,
		"channels": params.Channels,
	})
}

type deckSlide struct {
	Heading string   `json:"heading"`
	Bullets []string `json:"bullets"`
}

// renderDeck produces the embedded deck document as Markdown bytes. The
// bytes ride inside the artifact payload and are elided from the live stream.
func renderDeck(title string, slides []deckSlide) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for i, s := range slides {
		fmt.Fprintf(&b, "\n---\n\n## %d. %s\n\n", i+1, s.Heading)
		for _, bullet := range s.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	return []byte(b.String())
}

func runSlideDeck(ctx context.Context, deps Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Title  string      `json:"title"`
		Slides []deckSlide `json:"slides"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if params.Title == "" || len(params.Slides) == 0 {
		return nil, fmt.Errorf("slide deck requires a title and at least one slide")
	}

	doc := renderDeck(params.Title, params.Slides)
	docID := "deck-" + uuid.New().String()[:8]

	// Best effort: a store failure is reported on the result, not fatal.
	persisted := false
	if deps.Documents != nil {
		if err := deps.Documents.WriteDocument(ctx, docID, "slide_deck", params.Title, doc); err == nil {
			persisted = true
		}
	}

	return json.Marshal(map[string]interface{}{
		"title":          params.Title,
		"slide_count":    len(params.Slides),
		"slides":         params.Slides,
		"document_id":    docID,
		"persisted":      persisted,
		"document_bytes": base64.StdEncoding.EncodeToString(doc),
	})
}
