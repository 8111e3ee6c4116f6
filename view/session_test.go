// ABOUTME: Tests for view sessions and the registry
// ABOUTME: Exercises moves with revert, selection policy, bulk actions and change reloads
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/notify"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/projector"
)

// flakySource fails selected writes while delegating everything else.
type flakySource struct {
	*db.Store
	failPositions bool
	failUpdates   bool
}

func (f *flakySource) SaveBoardPositions(ctx context.Context, cols map[models.Stage][]string) error {
	if f.failPositions {
		return errors.New("network down")
	}
	return f.Store.SaveBoardPositions(ctx, cols)
}

func (f *flakySource) UpdateCustomers(ctx context.Context, cs []models.Customer) error {
	if f.failUpdates {
		return errors.New("network down")
	}
	return f.Store.UpdateCustomers(ctx, cs)
}

type fixture struct {
	store     *db.Store
	leads     []*models.Lead
	customers []*models.Customer
	toasts    *notify.Recorder
	deps      Deps
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := db.Open("sqlite3", filepath.Join(t.TempDir(), "view.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	f := &fixture{store: store, toasts: &notify.Recorder{}}
	for _, name := range []string{"A", "B"} {
		l := models.NewLead(name, models.StageProspect)
		l.DealValue = 1000
		require.NoError(t, store.CreateLead(ctx, l))
		f.leads = append(f.leads, l)
	}
	for i, company := range []string{"Acme", "Globex", "Initech"} {
		c := models.NewCustomer(company)
		c.Status = models.CustomerActive
		c.Industry = []string{"technology", "retail", "technology"}[i]
		require.NoError(t, store.CreateCustomer(ctx, c))
		f.customers = append(f.customers, c)
	}

	logger := log.New(io.Discard)
	f.deps = Deps{
		Dispatcher: bulk.NewDispatcher(store, nil, logger),
		Notifier:   f.toasts,
		Logger:     logger,
		Writes:     &sync.Mutex{},
	}
	return f
}

func mount(t *testing.T, src Source, deps Deps) *Session {
	t.Helper()
	s, err := Mount(context.Background(), src, deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestMountBuildsBoard(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	b := s.Board()
	assert.Equal(t, []string{f.leads[0].ID, f.leads[1].ID}, b.Positions(models.StageProspect))
	agg := s.Aggregates()
	require.Len(t, agg, len(models.AllStages()))
	assert.Equal(t, pipeline.Aggregate{Stage: models.StageProspect, Count: 2, TotalValue: 2000}, agg[0])
	assert.Len(t, s.VisibleCustomers(), 3)
}

func TestMovePersistsAndNotifies(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	res, err := s.Move(context.Background(), models.StageProspect, 0, models.StageQualified, 0)
	require.NoError(t, err)
	assert.Equal(t, f.leads[0].ID, res.LeadID)

	stored, err := f.store.GetLead(context.Background(), f.leads[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageQualified, stored.Stage)

	last, ok := f.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, "Moved A to Qualified", last.Message)

	// a second view sees the persisted order
	other := mount(t, f.store, f.deps)
	assert.Equal(t, []string{f.leads[1].ID}, other.Board().Positions(models.StageProspect))
}

func TestMoveRevertsWhenPersistenceFails(t *testing.T) {
	f := setup(t)
	src := &flakySource{Store: f.store, failPositions: true}
	s := mount(t, src, f.deps)
	before := s.Board()

	_, err := s.Move(context.Background(), models.StageProspect, 1, models.StageNegotiation, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bulk.ErrCollaboratorUnavailable))
	assert.Equal(t, before, s.Board())

	last, ok := f.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
}

func TestInvalidMove(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	_, err := s.Move(context.Background(), models.StageClosedWon, 0, models.StageProspect, 0)
	var invalid *pipeline.InvalidMoveError
	assert.True(t, errors.As(err, &invalid))
}

func TestFilterChangeClearsSelection(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	_, err := s.Toggle(f.customers[1].ID)
	require.NoError(t, err)
	require.Len(t, s.Selected(), 1)

	// sort only: same visible set, selection kept
	s.SetCustomerFilter(projector.CustomerFilter{}, projector.SortName, projector.Desc)
	assert.Len(t, s.Selected(), 1)

	visible := s.SetCustomerFilter(projector.CustomerFilter{Industry: "technology"}, projector.SortName, projector.Asc)
	assert.Equal(t, []string{"Acme", "Initech"}, []string{visible[0].Company, visible[1].Company})
	assert.Empty(t, s.Selected())

	_, err = s.Toggle(f.customers[1].ID)
	assert.True(t, errors.Is(err, ErrNotVisible))
}

func TestSelectAllVisibleToggles(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)
	s.SetCustomerFilter(projector.CustomerFilter{Industry: "technology"}, projector.SortNone, projector.Asc)

	s.SelectAllVisible()
	assert.Len(t, s.Selected(), 2)
	s.SelectAllVisible()
	assert.Empty(t, s.Selected())

	s.SelectAllVisible()
	s.ClearSelection()
	assert.Empty(t, s.Selected())
}

func TestBulkDeactivateClearsSelection(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	_, err := s.Toggle(f.customers[0].ID)
	require.NoError(t, err)
	_, err = s.Toggle(f.customers[2].ID)
	require.NoError(t, err)

	res, err := s.Bulk(context.Background(), "deactivate", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.customers[0].ID, f.customers[2].ID}, res.Updated)
	assert.Empty(t, s.Selected())

	statuses := map[string]models.CustomerStatus{}
	for _, c := range s.VisibleCustomers() {
		statuses[c.ID] = c.Status
	}
	assert.Equal(t, models.CustomerInactive, statuses[f.customers[0].ID])
	assert.Equal(t, models.CustomerActive, statuses[f.customers[1].ID])
	assert.Equal(t, models.CustomerInactive, statuses[f.customers[2].ID])

	stored, err := f.store.GetCustomer(context.Background(), f.customers[2].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerInactive, stored.Status)

	last, _ := f.toasts.Last()
	assert.Equal(t, "deactivate applied to 2 customer(s)", last.Message)
}

func TestBulkFailureKeepsSelection(t *testing.T) {
	f := setup(t)
	src := &flakySource{Store: f.store, failUpdates: true}
	deps := f.deps
	deps.Dispatcher = bulk.NewDispatcher(src, nil, f.deps.Logger)
	s := mount(t, src, deps)

	_, err := s.Toggle(f.customers[0].ID)
	require.NoError(t, err)

	_, err = s.Bulk(context.Background(), "activate", false)
	assert.True(t, errors.Is(err, bulk.ErrCollaboratorUnavailable))
	assert.Equal(t, []string{f.customers[0].ID}, s.Selected())
}

func TestBulkDeleteNeedsConfirmation(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)
	s.SelectAllVisible()

	_, err := s.Bulk(context.Background(), "delete", false)
	assert.True(t, errors.Is(err, bulk.ErrUnconfirmedDelete))
	assert.Len(t, s.Selected(), 3)

	res, err := s.Bulk(context.Background(), "delete", true)
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 3)
	assert.Empty(t, s.VisibleCustomers())
}

func TestExternalChangeReloads(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)
	_, err := s.Toggle(f.customers[0].ID)
	require.NoError(t, err)

	require.NoError(t, f.store.CreateCustomer(context.Background(), models.NewCustomer("Umbrella")))

	assert.Len(t, s.VisibleCustomers(), 4)
	assert.Empty(t, s.Selected(), "visible set changed")
}

func TestClosedSessionRejectsWork(t *testing.T) {
	f := setup(t)
	s, err := Mount(context.Background(), f.store, f.deps)
	require.NoError(t, err)
	s.Close()
	s.Close()

	_, err = s.Move(context.Background(), models.StageProspect, 0, models.StageQualified, 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Bulk(context.Background(), "activate", false)
	assert.ErrorIs(t, err, ErrClosed)

	// closed sessions no longer reload
	require.NoError(t, f.store.CreateCustomer(context.Background(), models.NewCustomer("Late")))
	assert.Len(t, s.VisibleCustomers(), 3)
}

func TestRegistry(t *testing.T) {
	f := setup(t)
	r := NewRegistry(f.store, f.deps)

	s, err := r.Open(context.Background())
	require.NoError(t, err)
	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Close(s.ID))
	assert.True(t, s.Closed())
	_, err = r.Get(s.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	assert.ErrorIs(t, r.Close(s.ID), ErrViewNotFound)

	_, err = r.Open(context.Background())
	require.NoError(t, err)
	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}

// waitOrFail runs fn and fails the test if it has not returned within d.
func waitOrFail(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not finish within %s", d)
	}
}

func TestStoreWritesDoNotWaitOnViewLock(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)

	s.mu.Lock()
	waitOrFail(t, 5*time.Second, func() {
		assert.NoError(t, f.store.CreateCustomer(context.Background(), models.NewCustomer("Umbrella")))
	})
	s.mu.Unlock()

	assert.Len(t, s.VisibleCustomers(), 4)
}

func TestConcurrentBulkOnOneViewSerializes(t *testing.T) {
	f := setup(t)
	s := mount(t, f.store, f.deps)
	s.SelectAllVisible()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i, action := range []string{"tag:first", "tag:second"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Bulk(context.Background(), action, false)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[2] = s.Move(context.Background(), models.StageProspect, 0, models.StageQualified, 0)
	}()
	waitOrFail(t, 5*time.Second, wg.Wait)

	// the first bulk clears the selection, so the second finds nothing selected
	require.NoError(t, errs[2])
	succeeded := 0
	for _, err := range errs[:2] {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, bulk.ErrNoSelection)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.store.ListCustomers(context.Background(), db.CustomerQuery{})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	tag := stored[0].Tags
	require.Len(t, tag, 1)
	for _, c := range stored {
		assert.Equal(t, tag, c.Tags)
	}

	lead, err := f.store.GetLead(context.Background(), f.leads[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageQualified, lead.Stage)
}

func TestTwoViewsWritingConcurrently(t *testing.T) {
	f := setup(t)
	a := mount(t, f.store, f.deps)
	b := mount(t, f.store, f.deps)

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 4*rounds)
	for name, s := range map[string]*Session{"a": a, "b": b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rounds {
				if _, err := s.Move(context.Background(), models.StageProspect, 0, models.StageProspect, 1); err != nil {
					errs <- err
				}
				s.SelectAllVisible()
				if _, err := s.Bulk(context.Background(), fmt.Sprintf("tag:%s%d", name, i), false); err != nil {
					errs <- err
				}
			}
		}()
	}
	waitOrFail(t, 30*time.Second, wg.Wait)
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	// an even number of swaps leaves the column as it started
	original := []string{f.leads[0].ID, f.leads[1].ID}
	leads, err := f.store.ListLeads(context.Background(), db.LeadQuery{Stage: models.StageProspect})
	require.NoError(t, err)
	assert.Equal(t, original, projector.IDs(leads))
	assert.Equal(t, original, a.Board().Positions(models.StageProspect))
	assert.Equal(t, original, b.Board().Positions(models.StageProspect))

	// no view overwrote the other's tags
	stored, err := f.store.ListCustomers(context.Background(), db.CustomerQuery{})
	require.NoError(t, err)
	for _, c := range stored {
		assert.Len(t, c.Tags, 2*rounds, c.Company)
	}
	assert.Len(t, a.Customers()[0].Tags, 2*rounds)
	assert.Len(t, b.Customers()[0].Tags, 2*rounds)
}

func TestMoveLeadFindsLeadAfterExternalMove(t *testing.T) {
	f := setup(t)
	a := mount(t, f.store, f.deps)
	b := mount(t, f.store, f.deps)

	_, err := b.Move(context.Background(), models.StageProspect, 1, models.StageProposal, 0)
	require.NoError(t, err)

	res, err := a.MoveLead(context.Background(), f.leads[1].ID, models.StageNegotiation, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, res.From)
	assert.Equal(t, models.StageNegotiation, res.To)

	_, err = a.MoveLead(context.Background(), "missing", models.StageNegotiation, 0)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
