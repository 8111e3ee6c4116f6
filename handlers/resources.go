// ABOUTME: MCP resource handlers for exposing pipeline data
// ABOUTME: Provides read-only JSON access to the board, leads, customers, and dashboard via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/viz"
)

const ResourceScheme = "pipeboard://"

type ResourceHandlers struct {
	store *db.Store
}

func NewResourceHandlers(store *db.Store) *ResourceHandlers {
	return &ResourceHandlers{store: store}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, ResourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", ResourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, ResourceScheme), "/")

	var data any
	var err error
	switch parts[0] {
	case "board":
		data, err = h.board(ctx)
	case "dashboard":
		data, err = h.dashboard(ctx)
	case "leads":
		if len(parts) == 1 {
			data, err = h.store.ListLeads(ctx, db.LeadQuery{})
		} else {
			data, err = h.store.GetLead(ctx, parts[1])
		}
	case "customers":
		if len(parts) == 1 {
			data, err = h.store.ListCustomers(ctx, db.CustomerQuery{})
		} else {
			data, err = h.store.GetCustomer(ctx, parts[1])
		}
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", parts[0], err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}}, nil
}

type boardResource struct {
	Stage     string   `json:"stage"`
	Aggregate any      `json:"aggregate"`
	LeadIDs   []string `json:"lead_ids"`
}

func (h *ResourceHandlers) board(ctx context.Context) ([]boardResource, error) {
	leads, err := h.store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, err
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, err
	}
	out := make([]boardResource, 0, len(board.Stages()))
	for _, agg := range board.Aggregates() {
		out = append(out, boardResource{
			Stage:     string(agg.Stage),
			Aggregate: agg,
			LeadIDs:   board.Positions(agg.Stage),
		})
	}
	return out, nil
}

func (h *ResourceHandlers) dashboard(ctx context.Context) (*viz.DashboardStats, error) {
	leads, err := h.store.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return nil, err
	}
	customers, err := h.store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, err
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return nil, err
	}
	return viz.GenerateDashboardStats(board, customers, time.Now()), nil
}
