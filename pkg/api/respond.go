package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"stockflow/pkg/apperr"
)

var errRouteNotFound = apperr.New(apperr.KindNotFound, "no such route")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, err error) int {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
		RequestID: requestIDFrom(r.Context()),
	})
	return status
}

// writeError answers with the status matching err's kind. Server-side
// failures are logged with their cause; the client only sees a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status := writeErrorBody(w, r, err); status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "malformed request body", err)
	}
	return nil
}

func pathIndex(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || n < 0 {
		return 0, apperr.New(apperr.KindBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
