package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/catalog"
	"github.com/ambardb/ambar/internal/engine"
	"github.com/ambardb/ambar/internal/query"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps engine error kinds to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrUniqueViolation):
		status, kind = http.StatusConflict, "unique_violation"
	case errors.Is(err, catalog.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, query.ErrValidation), errors.Is(err, engine.ErrReservedID):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, catalog.ErrTooManyIndexedFields), errors.Is(err, catalog.ErrNoFields),
		errors.Is(err, catalog.ErrInvalidField):
		status, kind = http.StatusUnprocessableEntity, "validation"
	default:
		status, kind = http.StatusInternalServerError, "internal"
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "validation"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
