// ABOUTME: Entity-agnostic record tool handlers
// ABOUTME: Implements query_records and update_record over leads and customers
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
)

type QueryHandlers struct {
	store *db.Store
}

func NewQueryHandlers(store *db.Store) *QueryHandlers {
	return &QueryHandlers{store: store}
}

type QueryRecordsInput struct {
	EntityType string   `json:"entity_type" jsonschema:"Type of record to list (leads, customers)"`
	IDs        []string `json:"ids,omitempty" jsonschema:"Only return these ids"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryRecordsOutput struct {
	EntityType string `json:"entity_type"`
	Results    []any  `json:"results"`
	Count      int    `json:"count"`
}

func (h *QueryHandlers) QueryRecords(ctx context.Context, _ *mcp.CallToolRequest, input QueryRecordsInput) (*mcp.CallToolResult, QueryRecordsOutput, error) {
	if input.Limit == 0 {
		input.Limit = 10
	}
	entity, err := db.ParseEntity(input.EntityType)
	if err != nil {
		return nil, QueryRecordsOutput{}, err
	}

	records, err := h.store.ListRecords(ctx, entity)
	if err != nil {
		return nil, QueryRecordsOutput{}, fmt.Errorf("failed to list %s: %w", entity, err)
	}

	want := make(map[string]bool, len(input.IDs))
	for _, id := range input.IDs {
		want[id] = true
	}

	out := QueryRecordsOutput{EntityType: string(entity), Results: []any{}}
	for _, rec := range records {
		if len(want) > 0 && !want[rec.RecordID()] {
			continue
		}
		if len(out.Results) >= input.Limit {
			break
		}
		out.Results = append(out.Results, recordToOutput(rec))
	}
	out.Count = len(out.Results)
	return nil, out, nil
}

type UpdateRecordInput struct {
	EntityType string         `json:"entity_type" jsonschema:"Type of record (leads, customers)"`
	ID         string         `json:"id" jsonschema:"ID of the record (required)"`
	Fields     map[string]any `json:"fields" jsonschema:"Fields to change, e.g. {\"email\": \"a@b.c\"}. Lead stage changes must use move_lead"`
}

func (h *QueryHandlers) UpdateRecord(ctx context.Context, _ *mcp.CallToolRequest, input UpdateRecordInput) (*mcp.CallToolResult, map[string]any, error) {
	if input.ID == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	if len(input.Fields) == 0 {
		return nil, nil, fmt.Errorf("fields is required")
	}
	entity, err := db.ParseEntity(input.EntityType)
	if err != nil {
		return nil, nil, err
	}

	rec, err := h.store.UpdateRecord(ctx, entity, input.ID, input.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update record: %w", err)
	}
	return nil, map[string]any{"entity_type": string(entity), "record": recordToOutput(rec)}, nil
}

func recordToOutput(rec models.Record) any {
	switch r := rec.(type) {
	case models.Lead:
		return leadToOutput(r)
	case models.Customer:
		return customerToOutput(r)
	}
	return rec
}
