// ABOUTME: View session owning one board, one customer listing and their selection
// ABOUTME: Serialises moves, filter changes and bulk actions; reloads on external changes
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/metrics"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/notify"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/projector"
	"github.com/harperreed/pipeboard/selection"
)

var (
	// ErrClosed is returned for operations on, or results arriving after, an unmounted view.
	ErrClosed     = errors.New("view is closed")
	ErrNotVisible = errors.New("record is not in the visible list")
)

// Source is the persistence collaborator a view reads from and writes through.
type Source interface {
	bulk.Persistence
	ListLeads(ctx context.Context, q db.LeadQuery) ([]models.Lead, error)
	ListCustomers(ctx context.Context, q db.CustomerQuery) ([]models.Customer, error)
	SaveBoardPositions(ctx context.Context, columns map[models.Stage][]string) error
	SubscribeToChanges(fn func(db.ChangeEvent)) func()
}

// Deps are the collaborators shared by every view.
type Deps struct {
	Dispatcher *bulk.Dispatcher
	Notifier   notify.Notifier
	Logger     *log.Logger
	// Writes is held around every write so views on one source see each
	// other's changes before computing their own. Views mounted with a nil
	// Writes only serialise against themselves.
	Writes *sync.Mutex
}

// WithWriteGate returns deps with a fresh shared write gate if it has none.
func (d Deps) WithWriteGate() Deps {
	if d.Writes == nil {
		d.Writes = &sync.Mutex{}
	}
	return d
}

// Session is one mounted view. Its board and selection are never shared.
type Session struct {
	ID string

	src        Source
	dispatcher *bulk.Dispatcher
	notifier   notify.Notifier
	logger     *log.Logger
	writes     *sync.Mutex

	// Lock order is ops, writes, mu. mu guards state only and is never held
	// across a collaborator call.
	ops       sync.Mutex
	mu        sync.Mutex
	gen       uint64
	board     *pipeline.Board
	customers []models.Customer
	filter    projector.CustomerFilter
	sortKey   projector.SortKey
	dir       projector.Direction
	visible   []models.Customer
	selected  *selection.Set

	stale       atomic.Bool
	closed      atomic.Bool
	unsubscribe func()
}

type toast struct {
	message string
	level   notify.Level
}

// Mount loads the view's state and starts listening for external changes.
func Mount(ctx context.Context, src Source, deps Deps) (*Session, error) {
	deps = deps.WithWriteGate()
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = bulk.NewDispatcher(src, nil, deps.Logger)
	}

	s := &Session{
		ID:         uuid.New().String(),
		src:        src,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		writes:     deps.Writes,
		selected:   selection.New(),
		dir:        projector.Asc,
	}
	s.logger = deps.Logger.With("view", s.ID)

	// Subscribe first so a write landing during the initial load marks the view stale.
	s.unsubscribe = src.SubscribeToChanges(s.onChange)

	s.mu.Lock()
	err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.unsubscribe()
		return nil, err
	}

	metrics.ViewOpened()
	return s, nil
}

// Close unmounts the view. In-flight operations finish but their results are dropped.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	metrics.ViewClosed()
}

func (s *Session) Closed() bool { return s.closed.Load() }

// onChange runs on the writer's goroutine, possibly while another view holds
// its own lock, so it only flags the view for reload.
func (s *Session) onChange(ev db.ChangeEvent) {
	if ev.Origin == s.ID || s.closed.Load() {
		return
	}
	s.stale.Store(true)
	s.logger.Debug("external change", "entity", ev.Entity, "op", ev.Op, "ids", len(ev.IDs))
}

// refresh reloads if an external change arrived since the last load. Callers hold mu.
func (s *Session) refresh(ctx context.Context) error {
	if !s.stale.Swap(false) {
		return nil
	}
	if err := s.load(ctx); err != nil {
		s.stale.Store(true)
		return err
	}
	return nil
}

// lock takes mu and brings state up to date for readers. A failed reload
// keeps the last good state.
func (s *Session) lock() {
	s.mu.Lock()
	if err := s.refresh(context.Background()); err != nil {
		s.logger.Warn("failed to reload after external change", "error", err)
	}
}

// beginWrite serialises this view's writes and takes the shared write gate.
// The returned func releases both.
func (s *Session) beginWrite() func() {
	s.ops.Lock()
	s.writes.Lock()
	return func() {
		s.writes.Unlock()
		s.ops.Unlock()
	}
}

func (s *Session) emit(t *toast) {
	if t != nil {
		s.notifier.Notify(t.message, t.level)
	}
}

// load replaces local state with the source's. Callers hold mu.
func (s *Session) load(ctx context.Context) error {
	leads, err := s.src.ListLeads(ctx, db.LeadQuery{})
	if err != nil {
		return &bulk.CollaboratorError{Op: "list leads", Err: err}
	}
	customers, err := s.src.ListCustomers(ctx, db.CustomerQuery{})
	if err != nil {
		return &bulk.CollaboratorError{Op: "list customers", Err: err}
	}
	board, err := pipeline.FromLeads(leads)
	if err != nil {
		return fmt.Errorf("failed to build board: %w", err)
	}
	s.board = board
	s.customers = customers
	s.gen++
	s.reproject()
	return nil
}

// reproject recomputes the visible list and clears the selection when the
// visible id set changed. Callers hold mu.
func (s *Session) reproject() {
	next := projector.Customers(s.customers, s.filter, s.sortKey, s.dir)
	if !sameIDs(projector.IDs(s.visible), projector.IDs(next)) {
		s.selected.Clear()
	}
	s.visible = next
}

func (s *Session) writeCtx(ctx context.Context) context.Context {
	return db.WithOrigin(ctx, s.ID)
}

// Board returns a copy of the current board.
func (s *Session) Board() *pipeline.Board {
	s.lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

func (s *Session) Aggregates() []pipeline.Aggregate {
	s.lock()
	defer s.mu.Unlock()
	return s.board.Aggregates()
}

// Move drags a card, persists both affected columns, and reverts to the
// pre-drag arrangement if persistence fails. Toasts go out after the view
// is unlocked.
func (s *Session) Move(ctx context.Context, src models.Stage, srcIndex int, dst models.Stage, dstIndex int) (pipeline.MoveResult, error) {
	res, t, err := s.move(ctx, func(*pipeline.Board) (models.Stage, int, error) {
		return src, srcIndex, nil
	}, dst, dstIndex)
	s.emit(t)
	return res, err
}

// MoveLead moves the lead with id wherever it currently sits, looked up after
// any pending reload so a concurrent writer cannot shift it underneath.
func (s *Session) MoveLead(ctx context.Context, id string, dst models.Stage, dstIndex int) (pipeline.MoveResult, error) {
	res, t, err := s.move(ctx, func(b *pipeline.Board) (models.Stage, int, error) {
		stage, index, ok := b.Find(id)
		if !ok {
			return "", 0, fmt.Errorf("lead %s: %w", id, db.ErrNotFound)
		}
		return stage, index, nil
	}, dst, dstIndex)
	s.emit(t)
	return res, err
}

type locator func(*pipeline.Board) (models.Stage, int, error)

func (s *Session) move(ctx context.Context, locate locator, dst models.Stage, dstIndex int) (pipeline.MoveResult, *toast, error) {
	if s.closed.Load() {
		return pipeline.MoveResult{}, nil, ErrClosed
	}
	done := s.beginWrite()
	defer done()

	s.mu.Lock()
	if err := s.refresh(ctx); err != nil {
		s.mu.Unlock()
		return pipeline.MoveResult{}, nil, err
	}
	src, srcIndex, err := locate(s.board)
	if err != nil {
		s.mu.Unlock()
		return pipeline.MoveResult{}, nil, err
	}
	next, res, err := pipeline.Move(s.board, src, srcIndex, dst, dstIndex)
	if err != nil {
		s.mu.Unlock()
		metrics.RecordMove(metrics.ResultInvalid)
		s.logger.Error("invalid move", "error", err)
		return res, nil, err
	}
	if !res.Moved {
		s.mu.Unlock()
		metrics.RecordMove(metrics.ResultNoop)
		return res, nil, nil
	}
	// show the move before it is persisted
	prev := s.board
	s.board = next
	s.mu.Unlock()

	columns := map[models.Stage][]string{src: next.Positions(src), dst: next.Positions(dst)}
	saveErr := s.src.SaveBoardPositions(s.writeCtx(ctx), columns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if saveErr != nil {
		if s.board == next {
			s.board = prev
		}
		metrics.RecordMove(metrics.ResultReverted)
		s.logger.Error("move reverted", "lead", res.LeadID, "error", saveErr)
		return pipeline.MoveResult{}, &toast{"Could not move lead: changes were reverted", notify.LevelError},
			&bulk.CollaboratorError{Op: "save board positions", Err: saveErr}
	}
	if s.closed.Load() {
		return pipeline.MoveResult{}, nil, ErrClosed
	}

	metrics.RecordMove(metrics.ResultOK)
	lead := next.List(dst)[res.Index]
	s.logger.Info("lead moved", "lead", res.LeadID, "from", res.From, "to", res.To, "index", res.Index)
	if res.From == res.To {
		return res, nil, nil
	}
	return res, &toast{fmt.Sprintf("Moved %s to %s", lead.Name, res.To.Label()), notify.LevelSuccess}, nil
}

// SetCustomerFilter changes filter and sort and returns the new visible list.
func (s *Session) SetCustomerFilter(f projector.CustomerFilter, key projector.SortKey, dir projector.Direction) []models.Customer {
	s.lock()
	defer s.mu.Unlock()
	s.filter = f.Normalize()
	s.sortKey = key
	s.dir = dir
	s.reproject()
	return cloneCustomers(s.visible)
}

func (s *Session) CustomerFilter() (projector.CustomerFilter, projector.SortKey, projector.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter, s.sortKey, s.dir
}

func (s *Session) VisibleCustomers() []models.Customer {
	s.lock()
	defer s.mu.Unlock()
	return cloneCustomers(s.visible)
}

// Customers returns the full unfiltered collection.
func (s *Session) Customers() []models.Customer {
	s.lock()
	defer s.mu.Unlock()
	return cloneCustomers(s.customers)
}

// Toggle flips one visible customer's selection.
func (s *Session) Toggle(id string) (bool, error) {
	s.lock()
	defer s.mu.Unlock()
	if !s.isVisible(id) {
		return false, fmt.Errorf("%s: %w", id, ErrNotVisible)
	}
	return s.selected.Toggle(id), nil
}

func (s *Session) SelectAllVisible() {
	s.lock()
	defer s.mu.Unlock()
	s.selected.SelectAllVisible(projector.IDs(s.visible))
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.Clear()
}

func (s *Session) Selected() []string {
	s.lock()
	defer s.mu.Unlock()
	return s.selected.IDs()
}

// Bulk runs action over the current selection. On success the customer list
// is replaced and the selection cleared; on failure both are left intact.
// Concurrent calls on one view run one after the other, so a second call sees
// the selection the first one left behind.
func (s *Session) Bulk(ctx context.Context, action string, confirmed bool) (bulk.Result, error) {
	res, t, err := s.bulk(ctx, action, confirmed)
	s.emit(t)
	return res, err
}

func (s *Session) bulk(ctx context.Context, action string, confirmed bool) (bulk.Result, *toast, error) {
	if s.closed.Load() {
		return bulk.Result{}, nil, ErrClosed
	}
	done := s.beginWrite()
	defer done()

	s.mu.Lock()
	if err := s.refresh(ctx); err != nil {
		s.mu.Unlock()
		return bulk.Result{}, nil, err
	}
	ids := s.selected.IDs()
	records := s.customers
	gen := s.gen
	s.mu.Unlock()

	// reads stay served from the pre-action state while the collaborators run
	res, err := s.dispatcher.Execute(s.writeCtx(ctx), action, ids, records, bulk.Options{Confirmed: confirmed})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return bulk.Result{}, nil, ErrClosed
	}
	if err != nil {
		if errors.Is(err, bulk.ErrCollaboratorUnavailable) {
			return res, &toast{fmt.Sprintf("%s failed, nothing was changed. Try again.", action), notify.LevelError}, err
		}
		return res, nil, err
	}

	s.customers = res.Records
	if gen != s.gen {
		// a reload landed mid-action; pick up whatever it brought in
		s.stale.Store(true)
	}
	if res.ClearSelection {
		s.selected.Clear()
	}
	s.reproject()

	return res, &toast{summary(res), levelFor(res)}, nil
}

func (s *Session) isVisible(id string) bool {
	for _, c := range s.visible {
		if c.ID == id {
			return true
		}
	}
	return false
}

func summary(res bulk.Result) string {
	var msg string
	switch {
	case res.Handle != "":
		msg = fmt.Sprintf("Export ready (%s)", res.Handle)
	case len(res.Deleted) > 0:
		msg = fmt.Sprintf("Deleted %d customer(s)", len(res.Deleted))
	default:
		msg = fmt.Sprintf("%s applied to %d customer(s)", res.Action, len(res.Updated))
	}
	if res.Partial() {
		msg += fmt.Sprintf(", %d not found", len(res.Failures))
	}
	return msg
}

func levelFor(res bulk.Result) notify.Level {
	if res.Partial() {
		return notify.LevelWarning
	}
	return notify.LevelSuccess
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func cloneCustomers(in []models.Customer) []models.Customer {
	out := make([]models.Customer, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
