// ABOUTME: MCP prompt handlers for reusable pipeline workflow templates
// ABOUTME: Provides lead review, pipeline review, and customer follow-up prompts
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/viz"
)

type PromptHandlers struct {
	store *db.Store
	now   func() time.Time
}

func NewPromptHandlers(store *db.Store) *PromptHandlers {
	return &PromptHandlers{store: store, now: time.Now}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "lead-review":
		return h.leadReview(ctx, args)
	case "pipeline-review":
		return h.pipelineReview(ctx)
	case "customer-followups":
		return h.customerFollowups(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) leadReview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["lead_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("lead_id is required")
	}
	lead, err := h.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please review this lead and recommend the next step:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	if lead.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", lead.Company)
	}
	fmt.Fprintf(&b, "Stage: %s\n", lead.Stage.Label())
	fmt.Fprintf(&b, "Priority: %s\n", lead.Priority)
	fmt.Fprintf(&b, "Deal Value: %s (%d%% probability)\n", export.FormatCents(lead.DealValue), lead.Probability)
	if lead.LastActivity != "" {
		fmt.Fprintf(&b, "Last Activity: %s (%s)\n", lead.LastActivity, lead.LastActivityDate.Format("2006-01-02"))
	}
	if len(lead.Notes) > 0 {
		b.WriteString("\nNotes:\n")
		for _, n := range lead.Notes {
			fmt.Fprintf(&b, "- %s: %s\n", n.CreatedAt.Format("2006-01-02"), n.Body)
		}
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Whether the lead is in the right stage")
	b.WriteString("\n2. The single most useful next action")
	b.WriteString("\n3. Risks to closing")

	return userPrompt(fmt.Sprintf("Review of lead: %s", lead.Name), b.String()), nil
}

func (h *PromptHandlers) pipelineReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	leads, err := h.store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}
	stats := viz.GenerateDashboardStats(board, nil, h.now())

	var b strings.Builder
	b.WriteString("Please analyze the sales pipeline below:\n\n")
	for _, agg := range stats.Pipeline {
		fmt.Fprintf(&b, "%s: %d leads, %s total, %.0f%% average probability\n",
			agg.Stage.Label(), agg.Count, export.FormatCents(agg.TotalValue), agg.AverageProbability)
	}
	fmt.Fprintf(&b, "\nOpen pipeline value: %s\n", export.FormatCents(stats.OpenValue))
	if len(stats.StaleLeads) > 0 {
		fmt.Fprintf(&b, "\nStale leads (no activity for %d+ days):\n", viz.StaleLeadDays)
		for _, s := range stats.StaleLeads {
			fmt.Fprintf(&b, "- %s in %s, %d days\n", s.Name, s.Stage.Label(), s.DaysSince)
		}
	}

	b.WriteString("\nPlease identify bottlenecks, leads that need attention, and a realistic forecast.")

	return userPrompt("Pipeline review", b.String()), nil
}

func (h *PromptHandlers) customerFollowups(ctx context.Context) (*mcp.GetPromptResult, error) {
	customers, err := h.store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}
	stats := viz.GenerateDashboardStats(pipeline.NewBoard(), customers, h.now())

	var b strings.Builder
	if len(stats.QuietCustomers) == 0 {
		b.WriteString("Every active customer has been contacted recently. Suggest ways to deepen the strongest relationships.")
		return userPrompt("Customer follow-ups", b.String()), nil
	}

	fmt.Fprintf(&b, "These customers have not been contacted in %d+ days:\n\n", viz.QuietCustomerDays)
	for _, q := range stats.QuietCustomers {
		if q.DaysSince < 0 {
			fmt.Fprintf(&b, "- %s (never contacted)\n", q.Company)
			continue
		}
		fmt.Fprintf(&b, "- %s (%d days)\n", q.Company, q.DaysSince)
	}
	b.WriteString("\nPlease suggest a short, personal outreach for each, most overdue first.")

	return userPrompt("Customer follow-ups", b.String()), nil
}
