package models

// ExecutionRequest is the typed parameter bag that seeds a department run.
// It is extracted from conversation or posted directly, and is immutable once
// handed to the coordinator.
type ExecutionRequest struct {
	// CompanyName is the name of the company being launched.
	CompanyName string `json:"company_name"`
	// Industry is the market sector, e.g. "Fitness Technology".
	Industry string `json:"industry"`
	// TargetAudience describes who the product is for.
	TargetAudience string `json:"target_audience"`
	// ProductDescription is a short plain-language product summary.
	ProductDescription string `json:"product_description"`
	// Differentiation states what sets the product apart.
	Differentiation string `json:"differentiation"`
	// BrandTone is the desired voice, e.g. "professional", "playful".
	BrandTone string `json:"brand_tone"`
	// Competitors lists known competitor names.
	Competitors []string `json:"competitors,omitempty"`
	// BrandVariables carries upstream artifacts mapped into a downstream
	// run (e.g. marketing palette and copy seeding engineering).
	BrandVariables map[string]string `json:"brand_variables,omitempty"`
}

// Default field values used when the user demands immediate execution
// without providing details. These are the documented fallbacks; execution
// never blocks waiting for clarification.
const (
	DefaultCompanyName        = "Startup"
	DefaultIndustry           = "Technology"
	DefaultTargetAudience     = "General consumers"
	DefaultProductDescription = "An innovative product"
	DefaultDifferentiation    = "Quality and innovation"
	DefaultBrandTone          = "professional"
)

// WithDefaults returns a copy of the request with every empty required
// field replaced by its documented default.
func (r ExecutionRequest) WithDefaults() ExecutionRequest {
	if r.CompanyName == "" {
		r.CompanyName = DefaultCompanyName
	}
	if r.Industry == "" {
		r.Industry = DefaultIndustry
	}
	if r.TargetAudience == "" {
		r.TargetAudience = DefaultTargetAudience
	}
	if r.ProductDescription == "" {
		r.ProductDescription = DefaultProductDescription
	}
	if r.Differentiation == "" {
		r.Differentiation = DefaultDifferentiation
	}
	if r.BrandTone == "" {
		r.BrandTone = DefaultBrandTone
	}
	return r
}
