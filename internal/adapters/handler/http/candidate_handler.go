package http

import (
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type CandidateHandler struct {
	service ports.CandidateService
	logger  *slog.Logger
}

func NewCandidateHandler(service ports.CandidateService, logger *slog.Logger) *CandidateHandler {
	return &CandidateHandler{
		service: service,
		logger:  logger,
	}
}

type createCandidateRequest struct {
	Name    string `json:"name"`
	Party   string `json:"party"`
	Age     *int   `json:"age"`
	LogoRef string `json:"logo_ref"`
}

type updateCandidateRequest struct {
	Name    *string `json:"name"`
	Party   *string `json:"party"`
	Age     *int    `json:"age"`
	LogoRef *string `json:"logo_ref"`
}

func (h *CandidateHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req createCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	candidate, err := h.service.Create(r.Context(), ports.CreateCandidateInput{
		Name:    req.Name,
		Party:   req.Party,
		Age:     req.Age,
		LogoRef: req.LogoRef,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate)
}

func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *CandidateHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidCandidateID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	candidate, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (h *CandidateHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidCandidateID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req updateCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	candidate, err := h.service.Update(r.Context(), id, ports.UpdateCandidateInput{
		Name:    req.Name,
		Party:   req.Party,
		Age:     req.Age,
		LogoRef: req.LogoRef,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidCandidateID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
