package department

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

const financeSystemPrompt = `You are the finance department of a company-building platform.
Given a company brief, produce a financial package by calling ALL of your tools:
project_revenue, break_down_costs, and plan_funding.
Use conservative assumptions and state them; do not ask clarifying questions.`

func financeSpec() *Spec {
	return &Spec{
		Department:    models.DepartmentFinance,
		SystemPrompt:  financeSystemPrompt,
		RequiredTools: 3,
		MaxTurns:      8,
		artifacts: map[string]models.ArtifactType{
			"project_revenue":  models.ArtifactRevenueProjection,
			"break_down_costs": models.ArtifactCostBreakdown,
			"plan_funding":     models.ArtifactFundingPlan,
		},
		Tools: []Tool{
			{
				Name:        "project_revenue",
				Description: "Record a multi-year revenue projection with its assumptions.",
				Properties: map[string]interface{}{
					"years": arrayProp("Projection per year, three to five years", objectItems(map[string]interface{}{
						"year":    numberProp("Calendar year"),
						"revenue": numberProp("Projected revenue in USD"),
					}, "year", "revenue")),
					"assumptions": arrayProp("Assumptions behind the projection", stringProp("An assumption")),
				},
				Required: []string{"years"},
				Run:      runRevenueProjection,
			},
			{
				Name:        "break_down_costs",
				Description: "Record the monthly cost structure and resulting burn rate.",
				Properties: map[string]interface{}{
					"categories": arrayProp("Cost categories", objectItems(map[string]interface{}{
						"name":    stringProp("Category name"),
						"monthly": numberProp("Monthly cost in USD"),
					}, "name", "monthly")),
				},
				Required: []string{"categories"},
				Run:      runCostBreakdown,
			},
			{
				Name:        "plan_funding",
				Description: "Record the funding plan: rounds, amounts, and use of funds.",
				Properties: map[string]interface{}{
					"rounds": arrayProp("Funding rounds in order", objectItems(map[string]interface{}{
						"name":   stringProp("Round name, e.g. Pre-seed"),
						"amount": numberProp("Amount raised in USD"),
						"timing": stringProp("When the round happens"),
					}, "name", "amount")),
					"use_of_funds": arrayProp("What the money is spent on", stringProp("A spend item")),
				},
				Required: []string{"rounds"},
				Run:      runFundingPlan,
			},
		},
	}
}

func runRevenueProjection(ctx context.Context, deps Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Years []struct {
			Year    int     `json:"year"`
			Revenue float64 `json:"revenue"`
		} `json:"years"`
		Assumptions []string `json:"assumptions"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.Years) == 0 {
		return nil, fmt.Errorf("revenue projection requires at least one year")
	}
	for _, y := range params.Years {
		if y.Revenue < 0 {
			return nil, fmt.Errorf("negative revenue for year %d", y.Year)
		}
	}

	report, err := json.Marshal(map[string]interface{}{
		"years":       params.Years,
		"assumptions": params.Assumptions,
	})
	if err != nil {
		return nil, err
	}

	// The projection doubles as the financial report document.
	docID := "finreport-" + uuid.New().String()[:8]
	persisted := false
	if deps.Documents != nil {
		if err := deps.Documents.WriteDocument(ctx, docID, "financial_report", "Revenue Projection", report); err == nil {
			persisted = true
		}
	}

	return json.Marshal(map[string]interface{}{
		"years":       params.Years,
		"assumptions": params.Assumptions,
		"document_id": docID,
		"persisted":   persisted,
	})
}

func runCostBreakdown(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Categories []struct {
			Name    string  `json:"name"`
			Monthly float64 `json:"monthly"`
		} `json:"categories"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.Categories) == 0 {
		return nil, fmt.Errorf("cost breakdown requires at least one category")
	}
	var burn float64
	for _, c := range params.Categories {
		if c.Monthly < 0 {
			return nil, fmt.Errorf("negative monthly cost for %q", c.Name)
		}
		burn += c.Monthly
	}
	return json.Marshal(map[string]interface{}{
		"categories":        params.Categories,
		"monthly_burn_rate": burn,
	})
}

func runFundingPlan(_ context.Context, _ Deps, input json.RawMessage) (json.RawMessage, error) {
	var params struct {
		Rounds []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
			Timing string  `json:"timing"`
		} `json:"rounds"`
		UseOfFunds []string `json:"use_of_funds"`
	}
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if len(params.Rounds) == 0 {
		return nil, fmt.Errorf("funding plan requires at least one round")
	}
	var total float64
	for _, r := range params.Rounds {
		if r.Amount <= 0 {
			return nil, fmt.Errorf("round %q must raise a positive amount", r.Name)
		}
		total += r.Amount
	}
	return json.Marshal(map[string]interface{}{
		"rounds":       params.Rounds,
		"total_raise":  total,
		"use_of_funds": params.UseOfFunds,
	})
}
