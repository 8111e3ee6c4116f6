// ABOUTME: Pipeline statistics and GraphViz MCP handlers
// ABOUTME: Provides pipeline_stats and generate_graph tools for agents
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/viz"
)

type VizHandlers struct {
	store *db.Store
	now   func() time.Time
}

func NewVizHandlers(store *db.Store) *VizHandlers {
	return &VizHandlers{store: store, now: time.Now}
}

type PipelineStatsInput struct {
	Render bool `json:"render,omitempty" jsonschema:"Also return the ASCII dashboard"`
}

type PipelineStatsOutput struct {
	*viz.DashboardStats
	Dashboard string `json:"dashboard,omitempty"`
}

func (h *VizHandlers) load(ctx context.Context) (*viz.DashboardStats, *pipeline.Board, error) {
	leads, err := h.store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list leads: %w", err)
	}
	customers, err := h.store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list customers: %w", err)
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build board: %w", err)
	}
	return viz.GenerateDashboardStats(board, customers, h.now()), board, nil
}

func (h *VizHandlers) PipelineStats(ctx context.Context, _ *mcp.CallToolRequest, input PipelineStatsInput) (*mcp.CallToolResult, PipelineStatsOutput, error) {
	stats, _, err := h.load(ctx)
	if err != nil {
		return nil, PipelineStatsOutput{}, err
	}
	out := PipelineStatsOutput{DashboardStats: stats}
	if input.Render {
		out.Dashboard = viz.RenderDashboard(stats)
	}
	return nil, out, nil
}

type GenerateGraphInput struct {
	Type string `json:"type" jsonschema:"Graph type: pipeline or customers"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}

	var dot string
	var nodes, edges int
	var err error
	switch input.Type {
	case "pipeline":
		var board *pipeline.Board
		if _, board, err = h.load(ctx); err != nil {
			return nil, GenerateGraphOutput{}, err
		}
		nodes = len(board.Stages())
		edges = max(nodes-1, 0)
		dot, err = viz.PipelineGraph(ctx, board)
	case "customers":
		customers, lerr := h.store.ListCustomers(ctx, db.CustomerQuery{})
		if lerr != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("failed to list customers: %w", lerr)
		}
		industries := make(map[string]bool)
		for _, c := range customers {
			industries[c.Industry] = true
		}
		nodes = len(industries) + len(customers)
		edges = len(customers)
		dot, err = viz.CustomerGraph(ctx, customers)
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("invalid graph type: %s (valid: pipeline, customers)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: nodes,
		EdgeCount: edges,
	}, nil
}
