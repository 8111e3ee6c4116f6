// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/viz"
)

// VizDashboardCommand prints the ASCII dashboard, or its stats as JSON.
func (a *App) VizDashboardCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	asJSON := fs.Bool("json", false, "Print the stats as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	board, customers, err := a.loadBoard(ctx)
	if err != nil {
		return err
	}
	stats := viz.GenerateDashboardStats(board, customers, time.Now())

	if *asJSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprint(a.Out, viz.RenderDashboard(stats))
	return nil
}

// VizGraphCommand writes the pipeline or customer graph as DOT.
func (a *App) VizGraphCommand(ctx context.Context, kind string, args []string) error {
	fs := flag.NewFlagSet("viz "+kind, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	board, customers, err := a.loadBoard(ctx)
	if err != nil {
		return err
	}

	var dot string
	switch kind {
	case "pipeline":
		dot, err = viz.PipelineGraph(ctx, board)
	case "customers":
		dot, err = viz.CustomerGraph(ctx, customers)
	default:
		return fmt.Errorf("unknown graph: %s (valid: pipeline, customers)", kind)
	}
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}
	fmt.Fprintln(a.Out, dot)
	return nil
}

func (a *App) loadBoard(ctx context.Context) (*pipeline.Board, []models.Customer, error) {
	leads, err := a.Store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list leads: %w", err)
	}
	customers, err := a.Store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list customers: %w", err)
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build board: %w", err)
	}
	return board, customers, nil
}
