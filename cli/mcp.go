// ABOUTME: MCP server subcommand
// ABOUTME: Registers pipeline tools, resources and prompts and serves them on stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pipeboard/handlers"
)

const version = "0.2.0"

// NewMCPServer builds the MCP server with every tool, resource and prompt registered.
func (a *App) NewMCPServer() *mcp.Server {
	leadHandlers := handlers.NewLeadHandlers(a.Store, a.Deps())
	customerHandlers := handlers.NewCustomerHandlers(a.Store, a.Dispatcher)
	queryHandlers := handlers.NewQueryHandlers(a.Store)
	vizHandlers := handlers.NewVizHandlers(a.Store)
	resourceHandlers := handlers.NewResourceHandlers(a.Store)
	promptHandlers := handlers.NewPromptHandlers(a.Store)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pipeboard",
		Version: version,
	}, nil)

	// Board tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_board",
		Description: "List every pipeline stage with its leads, count, total value and average probability",
	}, leadHandlers.ListBoard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_lead",
		Description: "Move a lead to a stage and position on the board, exactly like dragging its card",
	}, leadHandlers.MoveLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_lead",
		Description: "Create a new lead on the pipeline board",
	}, leadHandlers.CreateLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead_note",
		Description: "Add a note or log an activity on a lead and bump its last activity",
	}, leadHandlers.AddLeadNote)

	// Customer tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_customers",
		Description: "Filter and sort the customer directory by status, industry, location, relationship, text and tags",
	}, customerHandlers.FindCustomers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bulk_customers",
		Description: "Apply a bulk action (activate, deactivate, tag:<name>, untagAll, delete, export:<format>) to customer ids. Delete requires confirm: true",
	}, customerHandlers.BulkCustomers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_customer_contact",
		Description: "Record that a customer was contacted",
	}, customerHandlers.LogCustomerContact)

	// Generic record tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_records",
		Description: "List leads or customers, optionally limited to specific ids",
	}, queryHandlers.QueryRecords)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_record",
		Description: "Patch fields on a lead or customer. Lead stage changes must use move_lead",
	}, queryHandlers.UpdateRecord)

	// Visualization tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_stats",
		Description: "Pipeline aggregates, customer breakdown, stale leads and quiet customers",
	}, vizHandlers.PipelineStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate GraphViz DOT for the pipeline or the customer directory",
	}, vizHandlers.GenerateGraph)

	// Resources
	for _, r := range []*mcp.Resource{
		{URI: handlers.ResourceScheme + "board", Name: "board", Description: "Pipeline stages with aggregates and card order"},
		{URI: handlers.ResourceScheme + "dashboard", Name: "dashboard", Description: "Dashboard statistics"},
		{URI: handlers.ResourceScheme + "leads", Name: "leads", Description: "All leads"},
		{URI: handlers.ResourceScheme + "customers", Name: "customers", Description: "All customers"},
	} {
		r.MIMEType = "application/json"
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, t := range []*mcp.ResourceTemplate{
		{URITemplate: handlers.ResourceScheme + "leads/{id}", Name: "lead", Description: "One lead with notes and activities"},
		{URITemplate: handlers.ResourceScheme + "customers/{id}", Name: "customer", Description: "One customer"},
	} {
		t.MIMEType = "application/json"
		server.AddResourceTemplate(t, resourceHandlers.ReadResource)
	}

	// Prompts
	server.AddPrompt(&mcp.Prompt{
		Name:        "lead-review",
		Description: "Review one lead and recommend the next step",
		Arguments: []*mcp.PromptArgument{
			{Name: "lead_id", Description: "ID of the lead", Required: true},
		},
	}, promptHandlers.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Analyze the pipeline for bottlenecks and stale leads",
	}, promptHandlers.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "customer-followups",
		Description: "Suggest outreach for customers with no recent contact",
	}, promptHandlers.GetPrompt)

	return server
}

// MCPCommand starts the MCP server on stdio
func (a *App) MCPCommand(ctx context.Context) error {
	a.Logger.Info("starting MCP server", "version", version)
	return a.NewMCPServer().Run(ctx, &mcp.StdioTransport{})
}
