// ABOUTME: Lead and board MCP tool handlers
// ABOUTME: Implements list_board, move_lead, create_lead, and add_lead_note tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/projector"
	"github.com/harperreed/pipeboard/view"
)

type LeadHandlers struct {
	store *db.Store
	deps  view.Deps
}

func NewLeadHandlers(store *db.Store, deps view.Deps) *LeadHandlers {
	return &LeadHandlers{store: store, deps: deps.WithWriteGate()}
}

type ListBoardInput struct {
	Search   string   `json:"search,omitempty" jsonschema:"Only show leads whose name, company or email contains this text"`
	Priority string   `json:"priority,omitempty" jsonschema:"Only show leads with this priority: high, medium, low"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Only show leads carrying any of these tags"`
}

type ColumnOutput struct {
	Stage              string       `json:"stage"`
	Label              string       `json:"label"`
	Count              int          `json:"count"`
	TotalValue         int64        `json:"total_value"`
	AverageProbability float64      `json:"average_probability"`
	Leads              []LeadOutput `json:"leads"`
}

type ListBoardOutput struct {
	Columns []ColumnOutput `json:"columns"`
}

type LeadOutput struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Company          string   `json:"company,omitempty"`
	Email            string   `json:"email,omitempty"`
	Stage            string   `json:"stage"`
	Priority         string   `json:"priority"`
	Score            int      `json:"score"`
	DealValue        int64    `json:"deal_value"`
	Probability      int      `json:"probability"`
	Tags             []string `json:"tags,omitempty"`
	LastActivity     string   `json:"last_activity,omitempty"`
	LastActivityDate string   `json:"last_activity_date"`
	NoteCount        int      `json:"note_count"`
	ActivityCount    int      `json:"activity_count"`
}

func leadToOutput(l models.Lead) LeadOutput {
	return LeadOutput{
		ID:               l.ID,
		Name:             l.Name,
		Company:          l.Company,
		Email:            l.Email,
		Stage:            string(l.Stage),
		Priority:         string(l.Priority),
		Score:            l.Score,
		DealValue:        l.DealValue,
		Probability:      l.Probability,
		Tags:             l.Tags,
		LastActivity:     l.LastActivity,
		LastActivityDate: l.LastActivityDate.Format(time.RFC3339),
		NoteCount:        len(l.Notes),
		ActivityCount:    len(l.Activities),
	}
}

// ListBoard returns every stage column with its live aggregates. Filters only
// narrow the listed leads; aggregates always cover the whole column.
func (h *LeadHandlers) ListBoard(ctx context.Context, _ *mcp.CallToolRequest, input ListBoardInput) (*mcp.CallToolResult, ListBoardOutput, error) {
	leads, err := h.store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, ListBoardOutput{}, fmt.Errorf("failed to list leads: %w", err)
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, ListBoardOutput{}, fmt.Errorf("failed to build board: %w", err)
	}

	filter := projector.LeadFilter{Search: input.Search, Priority: models.Priority(input.Priority), Tags: input.Tags}
	out := ListBoardOutput{Columns: []ColumnOutput{}}
	for _, agg := range board.Aggregates() {
		col := ColumnOutput{
			Stage:              string(agg.Stage),
			Label:              agg.Stage.Label(),
			Count:              agg.Count,
			TotalValue:         agg.TotalValue,
			AverageProbability: agg.AverageProbability,
			Leads:              []LeadOutput{},
		}
		for _, l := range projector.Leads(board.List(agg.Stage), filter, projector.SortNone, projector.Asc) {
			col.Leads = append(col.Leads, leadToOutput(l))
		}
		out.Columns = append(out.Columns, col)
	}
	return nil, out, nil
}

type MoveLeadInput struct {
	LeadID   string `json:"lead_id" jsonschema:"ID of the lead to move (required)"`
	ToStage  string `json:"to_stage" jsonschema:"Destination stage: prospect, qualified, proposal, negotiation, closed_won, closed_lost"`
	Position *int   `json:"position,omitempty" jsonschema:"Zero-based position in the destination column (default top; past the end appends)"`
}

type MoveLeadOutput struct {
	LeadID string `json:"lead_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Index  int    `json:"index"`
	Moved  bool   `json:"moved"`
}

// MoveLead moves a lead through a short-lived view so positions are saved and
// reverted exactly as a dragged card would be.
func (h *LeadHandlers) MoveLead(ctx context.Context, _ *mcp.CallToolRequest, input MoveLeadInput) (*mcp.CallToolResult, MoveLeadOutput, error) {
	if input.LeadID == "" {
		return nil, MoveLeadOutput{}, fmt.Errorf("lead_id is required")
	}
	to, err := models.ParseStage(input.ToStage)
	if err != nil {
		return nil, MoveLeadOutput{}, err
	}
	position := 0
	if input.Position != nil {
		position = *input.Position
	}

	sess, err := view.Mount(ctx, h.store, h.deps)
	if err != nil {
		return nil, MoveLeadOutput{}, fmt.Errorf("failed to load board: %w", err)
	}
	defer sess.Close()

	res, err := sess.MoveLead(ctx, input.LeadID, to, position)
	if err != nil {
		return nil, MoveLeadOutput{}, fmt.Errorf("failed to move lead: %w", err)
	}

	return nil, MoveLeadOutput{
		LeadID: input.LeadID,
		From:   string(res.From),
		To:     string(to),
		Index:  res.Index,
		Moved:  res.Moved,
	}, nil
}

type CreateLeadInput struct {
	Name        string   `json:"name" jsonschema:"Lead name (required)"`
	Company     string   `json:"company,omitempty" jsonschema:"Company the lead works for"`
	Email       string   `json:"email,omitempty" jsonschema:"Email address"`
	Phone       string   `json:"phone,omitempty" jsonschema:"Phone number"`
	Location    string   `json:"location,omitempty" jsonschema:"City or region"`
	Stage       string   `json:"stage,omitempty" jsonschema:"Initial stage (default prospect)"`
	Priority    string   `json:"priority,omitempty" jsonschema:"Priority: high, medium, low (default medium)"`
	Score       int      `json:"score,omitempty" jsonschema:"Lead score from 0 to 5"`
	DealValue   int64    `json:"deal_value,omitempty" jsonschema:"Deal value in cents"`
	Probability int      `json:"probability,omitempty" jsonschema:"Win probability from 0 to 100"`
	Tags        []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
	InitialNote string   `json:"initial_note,omitempty" jsonschema:"Initial note for the lead"`
}

func (h *LeadHandlers) CreateLead(ctx context.Context, _ *mcp.CallToolRequest, input CreateLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.Name == "" {
		return nil, LeadOutput{}, fmt.Errorf("name is required")
	}

	stage := models.StageProspect
	if input.Stage != "" {
		var err error
		if stage, err = models.ParseStage(input.Stage); err != nil {
			return nil, LeadOutput{}, err
		}
	}

	lead := models.NewLead(input.Name, stage)
	lead.Company = input.Company
	lead.Email = input.Email
	lead.Phone = input.Phone
	lead.Location = input.Location
	lead.Score = input.Score
	lead.DealValue = input.DealValue
	lead.Probability = input.Probability
	lead.Tags = input.Tags
	if input.Priority != "" {
		lead.Priority = models.Priority(input.Priority)
	}

	if input.InitialNote != "" {
		if err := lead.AppendEntry(models.Entry{Kind: models.EntryNote, Body: input.InitialNote}); err != nil {
			return nil, LeadOutput{}, err
		}
	}

	if err := h.store.CreateLead(ctx, lead); err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return nil, leadToOutput(*lead), nil
}

type AddLeadNoteInput struct {
	LeadID       string `json:"lead_id" jsonschema:"ID of the lead (required)"`
	Content      string `json:"content" jsonschema:"Note or activity text (required)"`
	ActivityType string `json:"activity_type,omitempty" jsonschema:"Log as an activity instead of a note: call, email, meeting, note, task"`
}

func (h *LeadHandlers) AddLeadNote(ctx context.Context, _ *mcp.CallToolRequest, input AddLeadNoteInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.LeadID == "" {
		return nil, LeadOutput{}, fmt.Errorf("lead_id is required")
	}
	if input.Content == "" {
		return nil, LeadOutput{}, fmt.Errorf("content is required")
	}

	entry := models.Entry{Kind: models.EntryNote, Body: input.Content}
	if input.ActivityType != "" {
		entry.Kind = models.EntryActivity
		entry.Type = models.ActivityType(input.ActivityType)
	}

	lead, err := h.store.AddLeadEntry(ctx, input.LeadID, entry)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to add note: %w", err)
	}
	return nil, leadToOutput(*lead), nil
}
