package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a core error onto a status code and error body. Errors
// that carry no kind are logged and reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		status, code = http.StatusBadRequest, "validation_error"
	case domain.ErrForbidden:
		status, code = http.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		status, code = http.StatusNotFound, "not_found"
	case domain.ErrInvalidState:
		status, code = http.StatusConflict, "invalid_state"
	case domain.ErrDuplicateVote:
		status, code = http.StatusConflict, "duplicate_vote"
	case domain.ErrConflict:
		status, code = http.StatusConflict, "conflict"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		message = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}

func uuidParam(r *http.Request, name string, invalid error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}
