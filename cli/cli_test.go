// ABOUTME: Tests for CLI subcommands
// ABOUTME: Runs commands against a temporary store and inspects their output
package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
)

func setupTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	store, err := db.Open("sqlite3", filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	vault, err := export.OpenMemoryVault()
	require.NoError(t, err)
	t.Cleanup(func() { _ = vault.Close() })

	out := &bytes.Buffer{}
	app := NewAppWith(config.Default(), store, vault, log.New(io.Discard))
	app.Out = out
	app.In = strings.NewReader("")
	return app, out
}

func addCustomers(t *testing.T, app *App, companies ...string) []*models.Customer {
	t.Helper()
	var out []*models.Customer
	for _, company := range companies {
		c := models.NewCustomer(company)
		c.Status = models.CustomerActive
		require.NoError(t, app.Store.CreateCustomer(context.Background(), c))
		out = append(out, c)
	}
	return out
}

func TestAddAndListLeads(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()

	err := app.AddLeadCommand(ctx, []string{"--name", "Ada Lovelace", "--company", "Engines Ltd", "--value", "250000", "--probability", "40", "--note", "met at conf"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Lead created: Ada Lovelace")
	assert.Contains(t, out.String(), "$2,500.00")

	out.Reset()
	require.NoError(t, app.ListLeadsCommand(ctx, []string{"--stage", "prospect"}))
	assert.Contains(t, out.String(), "Ada Lovelace")
	assert.Contains(t, out.String(), "Note added")
	assert.Contains(t, out.String(), "1 lead(s)")

	out.Reset()
	require.NoError(t, app.ListLeadsCommand(ctx, []string{"--stage", "proposal"}))
	assert.Contains(t, out.String(), "No leads found")
}

func TestAddLeadValidation(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := t.Context()

	assert.Error(t, app.AddLeadCommand(ctx, []string{"--company", "Nameless"}))
	assert.Error(t, app.AddLeadCommand(ctx, []string{"--name", "X", "--stage", "bogus"}))
	assert.Error(t, app.AddLeadCommand(ctx, []string{"--name", "X", "--priority", "urgent"}))
}

func TestMoveLeadByPrefix(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()

	lead := models.NewLead("Grace", models.StageProspect)
	require.NoError(t, app.Store.CreateLead(ctx, lead))

	require.NoError(t, app.MoveLeadCommand(ctx, []string{"--to", "negotiation", lead.ID[:8]}))
	assert.Contains(t, out.String(), "Moved to Negotiation")

	got, err := app.Store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageNegotiation, got.Stage)

	assert.Error(t, app.MoveLeadCommand(ctx, []string{"--to", "qualified"}))
	assert.ErrorIs(t, app.MoveLeadCommand(ctx, []string{"--to", "qualified", "zzzz"}), db.ErrNotFound)
}

func TestAddAndListCustomers(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()

	require.NoError(t, app.AddCustomerCommand(ctx, []string{"--company", "Acme", "--status", "active", "--industry", "retail", "--tags", "vip, west"}))
	require.NoError(t, app.AddCustomerCommand(ctx, []string{"--company", "Globex", "--status", "churned"}))
	assert.Error(t, app.AddCustomerCommand(ctx, []string{"--contact", "nobody"}))

	out.Reset()
	require.NoError(t, app.ListCustomersCommand(ctx, []string{"--status", "active"}))
	assert.Contains(t, out.String(), "Acme")
	assert.Contains(t, out.String(), "vip,west")
	assert.NotContains(t, out.String(), "Globex")
	assert.Contains(t, out.String(), "1 customer(s)")
}

func TestContactCustomer(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()
	c := addCustomers(t, app, "Acme")[0]

	require.NoError(t, app.ContactCustomerCommand(ctx, []string{"--when", "2026-01-02T15:04:05Z", c.ID[:8]}))
	assert.Contains(t, out.String(), "Logged contact with Acme")

	got, err := app.Store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastInteraction)
	assert.Equal(t, 2026, got.LastInteraction.Year())

	assert.Error(t, app.ContactCustomerCommand(ctx, []string{"--when", "yesterday", c.ID}))
}

func TestBulkDeactivateFiltered(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()
	addCustomers(t, app, "Acme", "Globex", "Initech")

	require.NoError(t, app.BulkCommand(ctx, []string{"--search", "globex", "deactivate"}))
	assert.Contains(t, out.String(), "deactivate applied to 1 customer(s)")

	all, err := app.Store.ListCustomers(ctx, db.CustomerQuery{})
	require.NoError(t, err)
	for _, c := range all {
		if c.Company == "Globex" {
			assert.Equal(t, models.CustomerInactive, c.Status)
		} else {
			assert.Equal(t, models.CustomerActive, c.Status)
		}
	}
}

func TestBulkByIDs(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()
	cs := addCustomers(t, app, "Acme", "Globex")

	require.NoError(t, app.BulkCommand(ctx, []string{"tag:vip", cs[0].ID}))
	assert.Contains(t, out.String(), "applied to 1 customer(s)")

	got, err := app.Store.GetCustomer(ctx, cs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, got.Tags, "vip")

	other, err := app.Store.GetCustomer(ctx, cs[1].ID)
	require.NoError(t, err)
	assert.NotContains(t, other.Tags, "vip")
}

func TestBulkErrors(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := t.Context()
	addCustomers(t, app, "Acme")

	assert.Error(t, app.BulkCommand(ctx, nil))
	assert.ErrorIs(t, app.BulkCommand(ctx, []string{"--search", "nobody", "activate"}), bulk.ErrNoSelection)
	assert.ErrorIs(t, app.BulkCommand(ctx, []string{"explode"}), bulk.ErrInvalidAction)
}

func TestBulkDeleteConfirmation(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()
	addCustomers(t, app, "Acme", "Globex")

	// no terminal and no --yes
	app.Interactive = false
	require.Error(t, app.BulkCommand(ctx, []string{"delete"}))

	app.Interactive = true
	app.In = strings.NewReader("n\n")
	require.NoError(t, app.BulkCommand(ctx, []string{"delete"}))
	assert.Contains(t, out.String(), "Cancelled")

	all, err := app.Store.ListCustomers(ctx, db.CustomerQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	app.In = strings.NewReader("y\n")
	require.NoError(t, app.BulkCommand(ctx, []string{"--search", "acme", "delete"}))
	assert.Contains(t, out.String(), "Deleted 1 customer(s)")

	require.NoError(t, app.BulkCommand(ctx, []string{"--yes", "delete"}))
	all, err = app.Store.ListCustomers(ctx, db.CustomerQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBulkExportToFile(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()
	addCustomers(t, app, "Acme", "Globex")

	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, app.BulkCommand(ctx, []string{"--output", path, "export:csv"}))
	assert.Contains(t, out.String(), "Export ready")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme")
	assert.Contains(t, string(data), "Globex")
}

func TestResolvePrefix(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz789"}

	id, err := resolvePrefix(ids, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	id, err = resolvePrefix(ids, "xyz789")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", id)

	_, err = resolvePrefix(ids, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolvePrefix(ids, "q")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTags(" a, ,b "))
	assert.Nil(t, splitTags(""))
}

func TestVizCommands(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := t.Context()

	lead := models.NewLead("Ada", models.StageProposal)
	lead.DealValue = 100000
	require.NoError(t, app.Store.CreateLead(ctx, lead))
	addCustomers(t, app, "Acme")

	require.NoError(t, app.VizDashboardCommand(ctx, []string{"--json"}))
	assert.Contains(t, out.String(), "{")

	out.Reset()
	require.NoError(t, app.VizGraphCommand(ctx, "pipeline", nil))
	assert.Contains(t, out.String(), "digraph")

	path := filepath.Join(t.TempDir(), "customers.dot")
	require.NoError(t, app.VizGraphCommand(ctx, "customers", []string{"--output", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme")

	assert.Error(t, app.VizGraphCommand(ctx, "venn", nil))
}
