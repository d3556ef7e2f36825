package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"water-delivery/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	Field         string `json:"field,omitempty"`
	Entity        string `json:"entity,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, status, errorResponse{Error: message, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps the settlement error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var ve *core.ValidationError
	var nf *core.NotFoundError
	var ce *core.ConflictError
	var pe *core.PersistenceError

	switch {
	case errors.As(err, &ve):
		writeErrorResponse(w, r, http.StatusBadRequest, errorResponse{
			Error: ve.Error(), Code: "VALIDATION_ERROR", Field: ve.Field,
		})
	case errors.As(err, &nf):
		writeErrorResponse(w, r, http.StatusNotFound, errorResponse{
			Error: nf.Error(), Code: "NOT_FOUND", Entity: nf.Entity,
		})
	case errors.As(err, &ce):
		writeErrorResponse(w, r, http.StatusConflict, errorResponse{
			Error: ce.Error(), Code: "CONFLICT", CurrentStatus: string(ce.CurrentStatus),
		})
	case errors.As(err, &pe):
		log.Error("persistence failure", zap.String("request_id", requestIDFromContext(r.Context())), zap.Error(err))
		writeError(w, r, "the operation was not applied; retry", "PERSISTENCE_ERROR", http.StatusServiceUnavailable)
	default:
		log.Error("unhandled error", zap.String("request_id", requestIDFromContext(r.Context())), zap.Error(err))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
