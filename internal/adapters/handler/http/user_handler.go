package http

import (
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/election/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	logger  *slog.Logger
}

func NewUserHandler(service ports.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w, "missing user context")
		return
	}

	user, err := h.service.GetByID(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.service.ListVoters(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}
