package models

import (
	"encoding/json"
	"time"
)

// ArtifactType classifies a normalized department output.
type ArtifactType string

const (
	ArtifactBrandIdentity     ArtifactType = "brand_identity"
	ArtifactColorPalette      ArtifactType = "color_palette"
	ArtifactLogo              ArtifactType = "logo"
	ArtifactMarketingCopy     ArtifactType = "marketing_copy"
	ArtifactMarketAnalysis    ArtifactType = "market_analysis"
	ArtifactBusinessModel     ArtifactType = "business_model"
	ArtifactGoToMarket        ArtifactType = "go_to_market"
	ArtifactSlideDeck         ArtifactType = "slide_deck"
	ArtifactRevenueProjection ArtifactType = "revenue_projection"
	ArtifactCostBreakdown     ArtifactType = "cost_breakdown"
	ArtifactFundingPlan       ArtifactType = "funding_plan"
	ArtifactSourceFile        ArtifactType = "source_file"
	ArtifactProjectSummary    ArtifactType = "project_summary"
)

// Artifact is a normalized, department-tagged output derived from one or
// more completed tool calls. Artifacts are immutable after publication;
// later tool calls add new artifacts but never mutate existing ones.
type Artifact struct {
	// ID is a stable id derived from the producing tool call.
	ID string `json:"id"`
	// Department tags the producing pipeline.
	Department Department `json:"department"`
	// Type classifies the artifact.
	Type ArtifactType `json:"type"`
	// Title is a short human-readable label.
	Title string `json:"title,omitempty"`
	// Data is the structured artifact payload.
	Data json.RawMessage `json:"data,omitempty"`
	// CreatedAt is when the artifact was published.
	CreatedAt time.Time `json:"created_at"`
}

// Elide returns a copy of the artifact with large binary-like payload
// fields stripped, for use on the live event stream. The full payload is
// only carried in the terminal complete event.
func (a Artifact) Elide() Artifact {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(a.Data, &payload); err != nil {
		return a
	}
	stripped := false
	for _, key := range []string{"image_data", "document_bytes", "content"} {
		if v, ok := payload[key]; ok && len(v) > 256 {
			delete(payload, key)
			stripped = true
		}
	}
	if !stripped {
		return a
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return a
	}
	a.Data = data
	return a
}
