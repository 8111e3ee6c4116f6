// ABOUTME: Lead CLI commands
// ABOUTME: Human-friendly commands for adding, listing and moving leads on the board
package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/projector"
	"github.com/harperreed/pipeboard/view"
)

// AddLeadCommand adds a new lead to the board.
func (a *App) AddLeadCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-lead", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	name := fs.String("name", "", "Lead name (required)")
	company := fs.String("company", "", "Company name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	location := fs.String("location", "", "City or region")
	stage := fs.String("stage", string(models.StageProspect), "Stage (prospect, qualified, proposal, negotiation, closed_won, closed_lost)")
	priority := fs.String("priority", string(models.PriorityMedium), "Priority (high, medium, low)")
	score := fs.Int("score", 0, "Lead score 0-5")
	value := fs.Int64("value", 0, "Deal value in cents")
	probability := fs.Int("probability", 0, "Win probability 0-100")
	tags := fs.String("tags", "", "Comma-separated tags")
	note := fs.String("note", "", "Initial note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	st, err := models.ParseStage(*stage)
	if err != nil {
		return err
	}
	pr, err := models.ParsePriority(*priority)
	if err != nil {
		return err
	}

	lead := models.NewLead(*name, st)
	lead.Company = *company
	lead.Email = *email
	lead.Phone = *phone
	lead.Location = *location
	lead.Priority = pr
	lead.Score = *score
	lead.DealValue = *value
	lead.Probability = *probability
	lead.Tags = splitTags(*tags)
	if *note != "" {
		if err := lead.AppendEntry(models.Entry{Kind: models.EntryNote, Body: *note}); err != nil {
			return err
		}
	}

	if err := a.Store.CreateLead(ctx, lead); err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	fmt.Fprintf(a.Out, "✓ Lead created: %s (ID: %s)\n", lead.Name, lead.ID)
	fmt.Fprintf(a.Out, "  Stage: %s\n", lead.Stage.Label())
	if lead.DealValue > 0 {
		fmt.Fprintf(a.Out, "  Value: %s (%d%%)\n", export.FormatCents(lead.DealValue), lead.Probability)
	}
	return nil
}

// ListLeadsCommand prints the board column by column, or one stage when --stage is set.
func (a *App) ListLeadsCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-leads", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	stage := fs.String("stage", "", "Only show this stage")
	search := fs.String("search", "", "Search name, company or email")
	priority := fs.String("priority", "", "Only show this priority")
	tags := fs.String("tags", "", "Comma-separated tags (any match)")
	sortKey := fs.String("sort", "", "Sort within each stage (name, deal_value, probability, score, priority, last_activity)")
	dir := fs.String("dir", "asc", "Sort direction (asc, desc)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	leads, err := a.Store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return fmt.Errorf("failed to list leads: %w", err)
	}

	filter := projector.LeadFilter{
		Stage:    models.Stage(*stage),
		Priority: models.Priority(*priority),
		Search:   *search,
		Tags:     splitTags(*tags),
	}
	visible := projector.Leads(leads, filter, projector.SortKey(*sortKey), projector.ParseDirection(*dir))
	if len(visible) == 0 {
		fmt.Fprintln(a.Out, "No leads found")
		return nil
	}

	// projector sorts globally; regroup so each stage stays contiguous in board order
	byStage := make(map[models.Stage][]models.Lead)
	for _, l := range visible {
		byStage[l.Stage] = append(byStage[l.Stage], l)
	}

	table := tablewriter.NewWriter(a.Out)
	table.SetHeader([]string{"ID", "NAME", "COMPANY", "STAGE", "PRIORITY", "VALUE", "PROB", "LAST ACTIVITY"})
	for _, st := range models.AllStages() {
		for _, l := range byStage[st] {
			table.Append([]string{
				shortID(l.ID),
				l.Name,
				l.Company,
				l.Stage.Label(),
				string(l.Priority),
				export.FormatCents(l.DealValue),
				strconv.Itoa(l.Probability) + "%",
				l.LastActivity,
			})
		}
	}
	table.Render()
	fmt.Fprintf(a.Out, "%d lead(s)\n", len(visible))
	return nil
}

// MoveLeadCommand drags a lead to another stage through a view session.
func (a *App) MoveLeadCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("move-lead", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	to := fs.String("to", "", "Destination stage (required)")
	position := fs.Int("position", 0, "Position in the destination column (0 = top)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("lead ID required")
	}
	dst, err := models.ParseStage(*to)
	if err != nil {
		return err
	}

	sess, err := view.Mount(ctx, a.Store, a.Deps())
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}
	defer sess.Close()

	id, err := resolvePrefix(projector.IDs(sess.Board().Leads()), fs.Arg(0))
	if err != nil {
		return err
	}
	res, err := sess.MoveLead(ctx, id, dst, *position)
	if err != nil {
		return fmt.Errorf("failed to move lead: %w", err)
	}
	if !res.Moved {
		fmt.Fprintln(a.Out, "Lead already in place")
		return nil
	}
	fmt.Fprintf(a.Out, "✓ Moved to %s (position %d)\n", res.To.Label(), res.Index)
	return nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
