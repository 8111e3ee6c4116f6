// ABOUTME: Bulk action dispatcher for the customer directory
// ABOUTME: Applies an action to the selected records, delegating delete and export to collaborators
package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pipeboard/metrics"
	"github.com/harperreed/pipeboard/models"
)

// Persistence is the slice of the persistence collaborator bulk actions need.
type Persistence interface {
	UpdateCustomers(ctx context.Context, customers []models.Customer) error
	DeleteCustomers(ctx context.Context, ids []string) error
}

// Exporter serialises records and returns a handle to the stored artifact.
type Exporter interface {
	ExportRecords(ctx context.Context, records []models.Record, format string) (string, error)
}

// Options carries caller-side preconditions.
type Options struct {
	// Confirmed is the user's explicit acknowledgment for delete.
	Confirmed bool
}

// Result is what Execute hands back to the view.
type Result struct {
	Action string `json:"action"`
	// Records is the full collection after the action. Export leaves it unchanged.
	Records  []models.Customer `json:"-"`
	Updated  []string          `json:"updated"`
	Deleted  []string          `json:"deleted,omitempty"`
	Failures []string          `json:"failures"`
	Handle   string            `json:"export_handle,omitempty"`
	// ClearSelection tells the caller to empty its selection set.
	ClearSelection bool `json:"clear_selection"`
}

// Partial reports whether some selected ids were skipped.
func (r Result) Partial() bool { return len(r.Failures) > 0 }

// FailureError returns a *PartialBatchFailure when ids were skipped, else nil.
func (r Result) FailureError() error {
	if !r.Partial() {
		return nil
	}
	return &PartialBatchFailure{Action: r.Action, IDs: r.Failures}
}

// Dispatcher executes bulk actions. Store and Exporter may be nil, in which
// case mutations stay local and delete/export report the collaborator missing.
type Dispatcher struct {
	Store    Persistence
	Exporter Exporter
	Logger   *log.Logger
	// Strict panics on an unconfirmed delete instead of returning an error.
	Strict bool
	Now    func() time.Time

	custom map[Kind]Transform
}

func NewDispatcher(store Persistence, exporter Exporter, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		Store:    store,
		Exporter: exporter,
		Logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
		custom:   make(map[Kind]Transform),
	}
}

// Register adds a mutating action under name. Built-in names cannot be replaced.
func (d *Dispatcher) Register(name string, fn Transform) error {
	k := Kind(name)
	if name == "" || strings.Contains(name, ":") {
		return fmt.Errorf("invalid action name %q", name)
	}
	if _, ok := builtins[k]; ok || k == KindDelete || k == KindExport {
		return fmt.Errorf("action %q is built in", name)
	}
	if d.custom == nil {
		d.custom = make(map[Kind]Transform)
	}
	d.custom[k] = fn
	return nil
}

func (d *Dispatcher) parse(id string) (Action, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(id), ":")
	if _, ok := d.custom[Kind(kind)]; ok {
		return Action{Kind: Kind(kind), Arg: arg}, nil
	}
	return ParseAction(id)
}

func (d *Dispatcher) transform(k Kind) Transform {
	if fn, ok := builtins[k]; ok {
		return fn
	}
	return d.custom[k]
}

// Execute applies action to every record whose id is in selectedIDs. records is
// never modified; the returned Result carries the new collection. Ids that match
// no record are reported in Failures and do not fail the batch.
func (d *Dispatcher) Execute(ctx context.Context, action string, selectedIDs []string, records []models.Customer, opts Options) (Result, error) {
	a, err := d.parse(action)
	if err != nil {
		return Result{Action: action, Records: cloneAll(records)}, err
	}

	if a.Kind == KindDelete && !opts.Confirmed {
		if d.Strict {
			panic(ErrUnconfirmedDelete)
		}
		d.record(a, metrics.ResultFailed, 0)
		return Result{Action: a.String(), Records: cloneAll(records)}, ErrUnconfirmedDelete
	}

	ids := dedupe(selectedIDs)
	if len(ids) == 0 {
		return Result{Action: a.String(), Records: cloneAll(records)}, ErrNoSelection
	}

	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	var found, missing []string
	for _, id := range ids {
		if _, ok := index[id]; ok {
			found = append(found, id)
		} else {
			missing = append(missing, id)
		}
	}

	var res Result
	switch {
	case a.Kind == KindDelete:
		res, err = d.delete(ctx, records, found)
	case a.Kind == KindExport:
		res, err = d.export(ctx, a.Arg, records, index, found)
	default:
		res, err = d.mutate(ctx, a, records, index, found)
	}
	res.Action = a.String()
	if err != nil {
		d.Logger.Error("bulk action failed", "action", res.Action, "selected", len(ids), "error", err)
		d.record(a, metrics.ResultFailed, 0)
		return Result{Action: res.Action, Records: cloneAll(records), Failures: []string{}}, err
	}

	res.Failures = append([]string{}, missing...)
	res.ClearSelection = true

	outcome := metrics.ResultOK
	if res.Partial() {
		outcome = metrics.ResultPartial
		d.Logger.Warn("bulk action skipped records", "action", res.Action, "missing", missing)
	}
	d.record(a, outcome, len(missing))
	d.Logger.Info("bulk action applied", "action", res.Action, "updated", len(res.Updated), "deleted", len(res.Deleted), "failures", len(res.Failures))
	return res, nil
}

func (d *Dispatcher) mutate(ctx context.Context, a Action, records []models.Customer, index map[string]int, found []string) (Result, error) {
	fn := d.transform(a.Kind)
	if fn == nil {
		return Result{}, fmt.Errorf("no transform registered for %s", a.Kind)
	}

	out := cloneAll(records)
	now := d.Now()
	changed := make([]models.Customer, 0, len(found))
	for _, id := range found {
		c := &out[index[id]]
		fn(c, a.Arg, now)
		changed = append(changed, c.Clone())
	}

	if d.Store != nil && len(changed) > 0 {
		if err := d.Store.UpdateCustomers(ctx, changed); err != nil {
			return Result{}, &CollaboratorError{Op: "update customers", Err: err}
		}
	}
	return Result{Records: out, Updated: append([]string{}, found...)}, nil
}

func (d *Dispatcher) delete(ctx context.Context, records []models.Customer, found []string) (Result, error) {
	if d.Store == nil {
		return Result{}, &CollaboratorError{Op: "delete customers", Err: fmt.Errorf("no persistence configured")}
	}
	if len(found) > 0 {
		if err := d.Store.DeleteCustomers(ctx, found); err != nil {
			return Result{}, &CollaboratorError{Op: "delete customers", Err: err}
		}
	}

	gone := make(map[string]bool, len(found))
	for _, id := range found {
		gone[id] = true
	}
	out := make([]models.Customer, 0, len(records)-len(found))
	for _, r := range records {
		if !gone[r.ID] {
			out = append(out, r.Clone())
		}
	}
	return Result{Records: out, Updated: []string{}, Deleted: append([]string{}, found...)}, nil
}

func (d *Dispatcher) export(ctx context.Context, format string, records []models.Customer, index map[string]int, found []string) (Result, error) {
	if d.Exporter == nil {
		return Result{}, &CollaboratorError{Op: "export", Err: fmt.Errorf("no exporter configured")}
	}

	if len(found) == 0 {
		// every selected id was missing; there is nothing to render
		return Result{Records: cloneAll(records), Updated: []string{}}, nil
	}

	selected := make([]models.Record, 0, len(found))
	for _, id := range found {
		selected = append(selected, records[index[id]].Clone())
	}
	handle, err := d.Exporter.ExportRecords(ctx, selected, format)
	if err != nil {
		return Result{}, &CollaboratorError{Op: "export " + format, Err: err}
	}
	return Result{Records: cloneAll(records), Updated: []string{}, Handle: handle}, nil
}

func (d *Dispatcher) record(a Action, result string, skipped int) {
	metrics.RecordBulk(string(a.Kind), result, skipped)
}

func cloneAll(records []models.Customer) []models.Customer {
	out := make([]models.Customer, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
