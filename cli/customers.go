// ABOUTME: Customer CLI commands
// ABOUTME: Add, list, contact and bulk-act on customers from the terminal
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/projector"
	"github.com/harperreed/pipeboard/view"
)

// AddCustomerCommand adds a new customer account.
func (a *App) AddCustomerCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-customer", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	company := fs.String("company", "", "Company name (required)")
	contact := fs.String("contact", "", "Primary contact name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	industry := fs.String("industry", "", "Industry")
	location := fs.String("location", "", "City or region")
	status := fs.String("status", string(models.CustomerProspect), "Status (active, inactive, prospect, churned)")
	score := fs.Int("score", 50, "Relationship score 0-100")
	tags := fs.String("tags", "", "Comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *company == "" {
		return fmt.Errorf("--company is required")
	}
	st, err := models.ParseCustomerStatus(*status)
	if err != nil {
		return err
	}

	c := models.NewCustomer(*company)
	c.ContactName = *contact
	c.Email = *email
	c.Phone = *phone
	c.Industry = *industry
	c.Location = *location
	c.Status = st
	c.RelationshipScore = *score
	c.Tags = splitTags(*tags)

	if err := a.Store.CreateCustomer(ctx, c); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	fmt.Fprintf(a.Out, "✓ Customer created: %s (ID: %s)\n", c.Company, c.ID)
	fmt.Fprintf(a.Out, "  Status: %s, relationship %s\n", c.Status, c.Bucket())
	return nil
}

// ListCustomersCommand prints the filtered, sorted customer directory.
func (a *App) ListCustomersCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-customers", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	filter, sortKey, dir := customerFilterFlags(fs)
	limit := fs.Int("limit", 0, "Maximum rows (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	all, err := a.Store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}
	visible := projector.Customers(all, filter(), projector.SortKey(*sortKey), projector.ParseDirection(*dir))
	if len(visible) == 0 {
		fmt.Fprintln(a.Out, "No customers found")
		return nil
	}
	if *limit > 0 && len(visible) > *limit {
		visible = visible[:*limit]
	}

	table := tablewriter.NewWriter(a.Out)
	table.SetHeader([]string{"ID", "COMPANY", "CONTACT", "INDUSTRY", "STATUS", "SCORE", "TAGS", "LAST CONTACT"})
	for _, c := range visible {
		last := "never"
		if c.LastInteraction != nil {
			last = c.LastInteraction.Format("2006-01-02")
		}
		table.Append([]string{
			shortID(c.ID),
			c.Company,
			c.ContactName,
			c.Industry,
			string(c.Status),
			strconv.Itoa(c.RelationshipScore),
			strings.Join(c.Tags, ","),
			last,
		})
	}
	table.Render()
	fmt.Fprintf(a.Out, "%d customer(s)\n", len(visible))
	return nil
}

// ContactCustomerCommand records that a customer was contacted.
func (a *App) ContactCustomerCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("contact-customer", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	when := fs.String("when", "", "Contact time in RFC3339 (default now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("customer ID required")
	}

	at := time.Now()
	if *when != "" {
		parsed, err := time.Parse(time.RFC3339, *when)
		if err != nil {
			return fmt.Errorf("invalid --when (use RFC3339): %w", err)
		}
		at = parsed
	}

	id, err := a.resolveCustomerID(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	c, err := a.Store.TouchCustomer(ctx, id, at)
	if err != nil {
		return fmt.Errorf("failed to log contact: %w", err)
	}
	fmt.Fprintf(a.Out, "✓ Logged contact with %s\n", c.Company)
	return nil
}

// BulkCommand applies an action to every customer matching the filter flags,
// or to the ids given as arguments.
func (a *App) BulkCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bulk", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	filter, sortKey, dir := customerFilterFlags(fs)
	yes := fs.Bool("yes", false, "Skip the delete confirmation prompt")
	output := fs.String("output", "", "Write an export artifact to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("action required (activate, deactivate, tag:<name>, untagAll, delete, export:<format>)")
	}
	action := fs.Arg(0)
	refs := fs.Args()[1:]

	sess, err := view.Mount(ctx, a.Store, a.Deps())
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}
	defer sess.Close()

	visible := sess.SetCustomerFilter(filter(), projector.SortKey(*sortKey), projector.ParseDirection(*dir))
	if len(refs) == 0 {
		sess.SelectAllVisible()
	} else {
		for _, ref := range refs {
			id, err := resolvePrefix(projector.IDs(visible), ref)
			if err != nil {
				return err
			}
			if _, err := sess.Toggle(id); err != nil {
				return err
			}
		}
	}

	selected := sess.Selected()
	if len(selected) == 0 {
		return bulk.ErrNoSelection
	}

	confirmed := *yes
	if action == string(bulk.KindDelete) && !confirmed {
		if !a.Interactive {
			return fmt.Errorf("refusing to delete %d customer(s) without --yes", len(selected))
		}
		ok, err := a.confirm(fmt.Sprintf("Delete %d customer(s)?", len(selected)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.Out, "Cancelled")
			return nil
		}
		confirmed = true
	}

	res, err := sess.Bulk(ctx, action, confirmed)
	if err != nil {
		return fmt.Errorf("bulk %s failed: %w", action, err)
	}

	switch {
	case res.Handle != "":
		fmt.Fprintf(a.Out, "✓ Export ready: %s\n", res.Handle)
		if *output != "" {
			artifact, err := a.Vault.Get(res.Handle)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*output, artifact.Content, 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(a.Out, "  Written to %s\n", *output)
		}
	case len(res.Deleted) > 0:
		fmt.Fprintf(a.Out, "✓ Deleted %d customer(s)\n", len(res.Deleted))
	default:
		fmt.Fprintf(a.Out, "✓ %s applied to %d customer(s)\n", res.Action, len(res.Updated))
	}
	if res.Partial() {
		fmt.Fprintf(a.Out, "  Skipped %d missing: %s\n", len(res.Failures), strings.Join(res.Failures, ", "))
	}
	return nil
}

// customerFilterFlags registers the shared filter flags and returns a getter
// for the parsed filter.
func customerFilterFlags(fs *flag.FlagSet) (func() projector.CustomerFilter, *string, *string) {
	status := fs.String("status", "", "Filter by status")
	industry := fs.String("industry", "", "Filter by industry")
	location := fs.String("location", "", "Filter by location")
	relationship := fs.String("relationship", "", "Filter by relationship (excellent, good, fair, poor)")
	search := fs.String("search", "", "Search company, contact or email")
	tags := fs.String("tags", "", "Comma-separated tags (any match)")
	sortKey := fs.String("sort", "", "Sort by (company, relationship_score, last_interaction, created_at)")
	dir := fs.String("dir", "asc", "Sort direction (asc, desc)")

	return func() projector.CustomerFilter {
		return projector.CustomerFilter{
			Status:       models.CustomerStatus(*status),
			Industry:     *industry,
			Location:     *location,
			Relationship: models.RelationshipBucket(*relationship),
			Search:       *search,
			Tags:         splitTags(*tags),
		}
	}, sortKey, dir
}

func (a *App) resolveCustomerID(ctx context.Context, ref string) (string, error) {
	all, err := a.Store.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return "", fmt.Errorf("failed to list customers: %w", err)
	}
	return resolvePrefix(projector.IDs(all), ref)
}

func resolvePrefix(ids []string, ref string) (string, error) {
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("ID %q is ambiguous", ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%s: %w", ref, db.ErrNotFound)
	}
	return match, nil
}

// confirm asks a yes/no question on the terminal.
func (a *App) confirm(prompt string) (bool, error) {
	fmt.Fprintf(a.Out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
