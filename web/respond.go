// ABOUTME: JSON request decoding, response writing and error-to-status mapping
// ABOUTME: One place translates domain errors into HTTP status codes
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/harperreed/pipeboard/bulk"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/pipeline"
	"github.com/harperreed/pipeboard/view"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var invalidMove *pipeline.InvalidMoveError
	switch {
	case errors.As(err, &invalidMove),
		errors.Is(err, errBadRequest),
		errors.Is(err, db.ErrInvalid),
		errors.Is(err, bulk.ErrInvalidAction),
		errors.Is(err, bulk.ErrNoSelection),
		errors.Is(err, view.ErrNotVisible),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrViewNotFound),
		errors.Is(err, db.ErrNotFound),
		errors.Is(err, export.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, view.ErrClosed):
		return http.StatusGone
	case errors.Is(err, bulk.ErrUnconfirmedDelete):
		return http.StatusConflict
	case errors.Is(err, bulk.ErrCollaboratorUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// decodeFields reads a free-form JSON object for record create/patch.
func decodeFields(r *http.Request) (map[string]any, error) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}
	return fields, nil
}
