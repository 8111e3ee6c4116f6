// ABOUTME: Handlers for mounted views: board, moves, customer listing, selection and bulk
// ABOUTME: Each request resolves its session from the registry by view id
package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/projector"
	"github.com/harperreed/pipeboard/view"
	"github.com/harperreed/pipeboard/viz"
)

type column struct {
	Stage     models.Stage       `json:"stage"`
	Label     string             `json:"label"`
	Aggregate pipeline.Aggregate `json:"aggregate"`
	Leads     []models.Lead      `json:"leads"`
}

type boardResponse struct {
	Columns []column `json:"columns"`
}

func boardJSON(b *pipeline.Board) boardResponse {
	resp := boardResponse{Columns: []column{}}
	for _, stage := range b.Stages() {
		resp.Columns = append(resp.Columns, column{
			Stage:     stage,
			Label:     stage.Label(),
			Aggregate: b.Aggregate(stage),
			Leads:     b.List(stage),
		})
	}
	return resp
}

type moveRequest struct {
	SourceStage string `json:"source_stage"`
	SourceIndex int    `json:"source_index"`
	DestStage   string `json:"dest_stage"`
	DestIndex   int    `json:"dest_index"`
}

type moveResponse struct {
	Result pipeline.MoveResult `json:"result"`
	Board  boardResponse       `json:"board"`
}

type customersResponse struct {
	Customers []models.Customer `json:"customers"`
	Selected  []string          `json:"selected"`
	Count     int               `json:"count"`
}

type selectionRequest struct {
	Op string `json:"op"` // toggle, all or clear
	ID string `json:"id,omitempty"`
}

type selectionResponse struct {
	Selected []string `json:"selected"`
}

type bulkRequest struct {
	Action    string `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*view.Session, bool) {
	sess, err := s.views.Get(chi.URLParam(r, "viewID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleOpenView(w http.ResponseWriter, r *http.Request) {
	sess, err := s.views.Open(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleCloseView(w http.ResponseWriter, r *http.Request) {
	if err := s.views.Close(chi.URLParam(r, "viewID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, boardJSON(sess.Board()))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := models.ParseStage(req.SourceStage)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	dst, err := models.ParseStage(req.DestStage)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	res, err := sess.Move(r.Context(), src, req.SourceIndex, dst, req.DestIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Result: res, Board: boardJSON(sess.Board())})
}

// handleCustomers applies the query's filter and sort to the view and returns
// the visible list. Changing the visible set clears the selection.
func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	visible := sess.SetCustomerFilter(
		projector.CustomerFilterFromQuery(q),
		projector.SortKey(q.Get("sort")),
		projector.ParseDirection(q.Get("dir")),
	)
	writeJSON(w, http.StatusOK, customersResponse{
		Customers: visible,
		Selected:  sess.Selected(),
		Count:     len(visible),
	})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	switch req.Op {
	case "toggle":
		if _, err := sess.Toggle(req.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	case "all":
		sess.SelectAllVisible()
	case "clear":
		sess.ClearSelection()
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown selection op %q (valid: toggle, all, clear)", errBadRequest, req.Op))
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selected: sess.Selected()})
}

// handleBulk answers 207 when some selected ids no longer existed.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := sess.Bulk(r.Context(), req.Action, req.Confirmed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Partial() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, res)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viz.GenerateDashboardStats(sess.Board(), sess.Customers(), time.Now()))
}

// handleGraph returns DOT source; ?kind=customers graphs the visible customers.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		dot string
		err error
	)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "pipeline":
		dot, err = viz.PipelineGraph(r.Context(), sess.Board())
	case "customers":
		dot, err = viz.CustomerGraph(r.Context(), sess.VisibleCustomers())
	default:
		err = fmt.Errorf("%w: unknown graph kind %q (valid: pipeline, customers)", errBadRequest, kind)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}
