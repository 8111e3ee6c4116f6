// ABOUTME: Entry point for the pipeboard CLI, HTTP API, MCP server and TUI
// ABOUTME: Loads config, wires the app and routes to the requested command
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pipeboard/cli"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/logging"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/pipeboard/config.yaml)")
	dbPath := flag.String("db-path", "", "Database DSN override")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("pipeboard version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *dbPath != "" {
		cfg.Database.DSN = *dbPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("failed to configure logging", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "serve", "mcp", "tui", "crm", "viz":
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open pipeboard", "error", err)
	}

	err = run(ctx, app, command, commandArgs)
	if cerr := app.Close(); cerr != nil {
		logger.Warn("failed to close cleanly", "error", cerr)
	}
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, app *cli.App, command string, args []string) error {
	switch command {
	case "serve":
		return app.ServeCommand(ctx, args)

	case "mcp":
		return app.MCPCommand(ctx)

	case "tui":
		return app.TUICommand(ctx)

	case "crm":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("crm requires a subcommand")
		}
		crmArgs := args[1:]

		switch args[0] {
		// Lead commands
		case "add-lead":
			return app.AddLeadCommand(ctx, crmArgs)
		case "list-leads":
			return app.ListLeadsCommand(ctx, crmArgs)
		case "move-lead":
			return app.MoveLeadCommand(ctx, crmArgs)

		// Customer commands
		case "add-customer":
			return app.AddCustomerCommand(ctx, crmArgs)
		case "list-customers":
			return app.ListCustomersCommand(ctx, crmArgs)
		case "contact-customer":
			return app.ContactCustomerCommand(ctx, crmArgs)
		case "bulk":
			return app.BulkCommand(ctx, crmArgs)
		}
		printUsage()
		return fmt.Errorf("unknown crm command: %s", args[0])

	case "viz":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("viz requires a subcommand")
		}
		switch args[0] {
		case "dashboard":
			return app.VizDashboardCommand(ctx, args[1:])
		case "pipeline", "customers":
			return app.VizGraphCommand(ctx, args[0], args[1:])
		}
		printUsage()
		return fmt.Errorf("unknown viz command: %s", args[0])
	}

	return nil
}

func printUsage() {
	fmt.Printf(`pipeboard v%s - sales pipeline board and customer directory

USAGE:
  pipeboard [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/pipeboard/config.yaml)
  --db-path <dsn>        Database DSN override

COMMANDS:
  serve                  Start the HTTP API
  mcp                    Start MCP server on stdio
  tui                    Interactive board and customer directory
  crm                    Lead and customer commands
  viz                    Dashboard and graphs

SERVE:
  pipeboard serve
    --addr <addr>             Listen address (default from config, :8080)

CRM COMMANDS:
  pipeboard crm add-lead       Add a lead to the board
    --name <name>             Lead name (required)
    --company <company>       Company name
    --email <email>           Email address
    --stage <stage>           prospect, qualified, proposal, negotiation, closed_won, closed_lost
    --priority <priority>     high, medium, low (default: medium)
    --value <cents>           Deal value in cents
    --probability <0-100>     Win probability
    --tags <a,b>              Comma-separated tags
    --note <text>             Initial note

  pipeboard crm list-leads     List leads grouped by stage
    --stage, --priority, --search, --tags, --sort, --dir

  pipeboard crm move-lead [flags] <id>  Move a lead (IDs may be shortened)
    --to <stage>              Destination stage (required)
    --position <n>            Position in the destination column (default: 0)

  pipeboard crm add-customer   Add a customer
    --company <name>          Company name (required)
    --contact, --email, --phone, --industry, --location, --status, --score, --tags

  pipeboard crm list-customers List customers
    --status, --industry, --location, --relationship, --search, --tags, --sort, --dir, --limit

  pipeboard crm contact-customer [--when <rfc3339>] <id>  Log a contact

  pipeboard crm bulk [filter flags] <action> [ids...]  Act on matching customers
    actions: activate, deactivate, tag:<name>, untagAll, delete, export:<csv|json|pdf|xlsx>
    --yes                     Skip the delete confirmation
    --output <file>           Write the export artifact to a file

VIZ COMMANDS:
  pipeboard viz dashboard [--json]      Pipeline dashboard
  pipeboard viz pipeline [--output f]   Pipeline graph as DOT
  pipeboard viz customers [--output f]  Customers by industry as DOT

EXAMPLES:
  pipeboard crm add-lead --name "Ada Lovelace" --company "Engines Ltd" --value 500000
  pipeboard crm move-lead --to proposal 3f2a
  pipeboard crm bulk --status inactive --yes delete
  pipeboard crm bulk --industry retail export:csv --output retail.csv

`, version)
}
