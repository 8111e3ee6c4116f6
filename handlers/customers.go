// ABOUTME: Customer MCP tool handlers
// ABOUTME: Implements find_customers, bulk_customers, and log_customer_contact tools
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/projector"
)

type CustomerHandlers struct {
	store      *db.Store
	dispatcher *bulk.Dispatcher
}

func NewCustomerHandlers(store *db.Store, dispatcher *bulk.Dispatcher) *CustomerHandlers {
	return &CustomerHandlers{store: store, dispatcher: dispatcher}
}

type FindCustomersInput struct {
	Status       string   `json:"status,omitempty" jsonschema:"Customer status: active, inactive, prospect, churned"`
	Industry     string   `json:"industry,omitempty" jsonschema:"Exact industry"`
	Location     string   `json:"location,omitempty" jsonschema:"Exact location"`
	Relationship string   `json:"relationship,omitempty" jsonschema:"Relationship bucket: excellent, good, fair, poor"`
	Search       string   `json:"search,omitempty" jsonschema:"Text matched against company, contact name and email"`
	Tags         []string `json:"tags,omitempty" jsonschema:"Match customers carrying any of these tags"`
	Sort         string   `json:"sort,omitempty" jsonschema:"Sort key: company, relationship_score, last_interaction, created_at"`
	Direction    string   `json:"direction,omitempty" jsonschema:"asc or desc (default asc)"`
	Limit        int      `json:"limit,omitempty" jsonschema:"Maximum results to return (default 50)"`
}

type CustomerOutput struct {
	ID                string   `json:"id"`
	Company           string   `json:"company"`
	ContactName       string   `json:"contact_name,omitempty"`
	Email             string   `json:"email,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	Location          string   `json:"location,omitempty"`
	Status            string   `json:"status"`
	RelationshipScore int      `json:"relationship_score"`
	Relationship      string   `json:"relationship"`
	Tags              []string `json:"tags,omitempty"`
	LastInteraction   *string  `json:"last_interaction,omitempty"`
}

type FindCustomersOutput struct {
	Customers []CustomerOutput `json:"customers"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
}

func customerToOutput(c models.Customer) CustomerOutput {
	out := CustomerOutput{
		ID:                c.ID,
		Company:           c.Company,
		ContactName:       c.ContactName,
		Email:             c.Email,
		Industry:          c.Industry,
		Location:          c.Location,
		Status:            string(c.Status),
		RelationshipScore: c.RelationshipScore,
		Relationship:      string(c.Bucket()),
		Tags:              c.Tags,
	}
	if c.LastInteraction != nil {
		s := c.LastInteraction.Format(time.RFC3339)
		out.LastInteraction = &s
	}
	return out
}

func (h *CustomerHandlers) FindCustomers(ctx context.Context, _ *mcp.CallToolRequest, input FindCustomersInput) (*mcp.CallToolResult, FindCustomersOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 50
	}

	all, err := h.store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, FindCustomersOutput{}, fmt.Errorf("failed to list customers: %w", err)
	}

	filter := projector.CustomerFilter{
		Status:       models.CustomerStatus(input.Status),
		Industry:     input.Industry,
		Location:     input.Location,
		Relationship: models.RelationshipBucket(input.Relationship),
		Search:       input.Search,
		Tags:         input.Tags,
	}
	visible := projector.Customers(all, filter, projector.SortKey(input.Sort), projector.ParseDirection(input.Direction))

	out := FindCustomersOutput{Customers: []CustomerOutput{}, Total: len(visible)}
	for i, c := range visible {
		if i >= input.Limit {
			break
		}
		out.Customers = append(out.Customers, customerToOutput(c))
	}
	out.Count = len(out.Customers)
	return nil, out, nil
}

type BulkCustomersInput struct {
	Action  string   `json:"action" jsonschema:"Action: activate, deactivate, tag:<name>, untagAll, delete, export:<csv|json|xlsx|pdf>"`
	IDs     []string `json:"ids" jsonschema:"Customer IDs to act on (required)"`
	Confirm bool     `json:"confirm,omitempty" jsonschema:"Must be true for delete"`
}

type BulkCustomersOutput struct {
	Action   string   `json:"action"`
	Updated  []string `json:"updated"`
	Deleted  []string `json:"deleted,omitempty"`
	Failures []string `json:"failures"`
	Handle   string   `json:"export_handle,omitempty"`
}

func (h *CustomerHandlers) BulkCustomers(ctx context.Context, _ *mcp.CallToolRequest, input BulkCustomersInput) (*mcp.CallToolResult, BulkCustomersOutput, error) {
	if input.Action == "" {
		return nil, BulkCustomersOutput{}, fmt.Errorf("action is required")
	}
	if len(input.IDs) == 0 {
		return nil, BulkCustomersOutput{}, fmt.Errorf("ids is required")
	}

	all, err := h.store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return nil, BulkCustomersOutput{}, fmt.Errorf("failed to list customers: %w", err)
	}

	res, err := h.dispatcher.Execute(ctx, input.Action, input.IDs, all, bulk.Options{Confirmed: input.Confirm})
	if err != nil {
		if errors.Is(err, bulk.ErrUnconfirmedDelete) {
			return nil, BulkCustomersOutput{}, fmt.Errorf("delete requires confirm: true: %w", err)
		}
		return nil, BulkCustomersOutput{}, fmt.Errorf("bulk %s failed: %w", input.Action, err)
	}

	return nil, BulkCustomersOutput{
		Action:   res.Action,
		Updated:  append([]string{}, res.Updated...),
		Deleted:  res.Deleted,
		Failures: res.Failures,
		Handle:   res.Handle,
	}, nil
}

type LogCustomerContactInput struct {
	CustomerID string `json:"customer_id" jsonschema:"ID of the customer (required)"`
	When       string `json:"when,omitempty" jsonschema:"Time of contact in RFC3339 (default now)"`
}

func (h *CustomerHandlers) LogCustomerContact(ctx context.Context, _ *mcp.CallToolRequest, input LogCustomerContactInput) (*mcp.CallToolResult, CustomerOutput, error) {
	if input.CustomerID == "" {
		return nil, CustomerOutput{}, fmt.Errorf("customer_id is required")
	}
	at := time.Now()
	if input.When != "" {
		parsed, err := time.Parse(time.RFC3339, input.When)
		if err != nil {
			return nil, CustomerOutput{}, fmt.Errorf("invalid when format (use RFC3339): %w", err)
		}
		at = parsed
	}

	c, err := h.store.TouchCustomer(ctx, input.CustomerID, at)
	if err != nil {
		return nil, CustomerOutput{}, fmt.Errorf("failed to log contact: %w", err)
	}
	return nil, customerToOutput(*c), nil
}
