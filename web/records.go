// ABOUTME: Record CRUD handlers for leads and customers plus export downloads
// ABOUTME: Writes go through the store, which notifies open views to reload
package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/projector"
)

type entryRequest struct {
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"`
	Body string `json:"body"`
	URL  string `json:"url,omitempty"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.ListLeads(r.Context(), db.LeadQuery{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	leads = projector.Leads(leads, projector.LeadFilterFromQuery(q), projector.SortKey(q.Get("sort")), projector.ParseDirection(q.Get("dir")))
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateRecord(entity db.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rec, err := s.store.CreateRecord(r.Context(), entity, fields)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("record created", "entity", entity, "id", rec.RecordID())
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) handlePatchRecord(entity db.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rec, err := s.store.UpdateRecord(r.Context(), entity, chi.URLParam(r, "id"), fields)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry := models.Entry{
		Kind: models.EntryKind(req.Kind),
		Type: models.ActivityType(req.Type),
		Body: req.Body,
		URL:  req.URL,
	}
	lead, err := s.store.AddLeadEntry(r.Context(), chi.URLParam(r, "id"), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// handleContactCustomer records an explicit contact, the only way
// last_interaction changes.
func (s *Server) handleContactCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.TouchCustomer(r.Context(), chi.URLParam(r, "id"), time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	handles, err := s.vault.List()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"handles": handles})
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	a, err := s.vault.Get(chi.URLParam(r, "handle"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	_, _ = w.Write(a.Content)
}
