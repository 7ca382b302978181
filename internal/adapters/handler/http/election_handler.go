package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

const dateLayout = "2006-01-02"

type ElectionHandler struct {
	service ports.ElectionService
	stats   ports.StatsService
	logger  *slog.Logger
}

func NewElectionHandler(service ports.ElectionService, stats ports.StatsService, logger *slog.Logger) *ElectionHandler {
	return &ElectionHandler{
		service: service,
		stats:   stats,
		logger:  logger,
	}
}

type createElectionRequest struct {
	Title        string      `json:"title"`
	Year         int         `json:"year"`
	StartDate    string      `json:"start_date"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
}

type castVoteRequest struct {
	CandidateID uuid.UUID `json:"candidate_id"`
}

type rosterEntryResponse struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Party       string    `json:"party"`
	LogoRef     string    `json:"logo_ref,omitempty"`
	VoteCount   int64     `json:"vote_count"`
}

// electionResponse is the public view of an election. The voter ledger is
// never serialized; callers only learn whether they voted themselves.
type electionResponse struct {
	ID         uuid.UUID             `json:"id"`
	Title      string                `json:"title"`
	Year       int                   `json:"year"`
	StartDate  string                `json:"start_date"`
	StartTime  string                `json:"start_time,omitempty"`
	EndTime    string                `json:"end_time,omitempty"`
	State      domain.ElectionState  `json:"state"`
	IsActive   bool                  `json:"is_active"`
	Candidates []rosterEntryResponse `json:"candidates"`
	TotalVotes int64                 `json:"total_votes"`
	Winner     *domain.Winner        `json:"winner"`
	HasVoted   *bool                 `json:"has_voted,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	ClosedAt   *time.Time            `json:"closed_at,omitempty"`
}

type closeElectionResponse struct {
	ElectionID uuid.UUID      `json:"election_id"`
	Winner     *domain.Winner `json:"winner"`
}

func newElectionResponse(e *domain.Election, viewer *domain.Principal) electionResponse {
	resp := electionResponse{
		ID:         e.ID,
		Title:      e.Title,
		Year:       e.Year,
		StartDate:  e.StartDate.Format(dateLayout),
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		State:      e.State,
		IsActive:   e.IsActive(),
		Candidates: make([]rosterEntryResponse, len(e.Candidates)),
		TotalVotes: e.TotalVotes(),
		Winner:     e.Winner,
		CreatedAt:  e.CreatedAt,
		StartedAt:  e.StartedAt,
		ClosedAt:   e.ClosedAt,
	}
	for i, c := range e.Candidates {
		resp.Candidates[i] = rosterEntryResponse{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			Party:       c.Party,
			LogoRef:     c.LogoRef,
			VoteCount:   c.VoteCount,
		}
	}
	if viewer != nil && viewer.Role == domain.RoleVoter {
		voted := e.HasVoted(viewer.ID)
		resp.HasVoted = &voted
	}
	return resp
}

func newElectionResponses(elections []*domain.Election, viewer *domain.Principal) []electionResponse {
	out := make([]electionResponse, len(elections))
	for i, e := range elections {
		out[i] = newElectionResponse(e, viewer)
	}
	return out
}

func viewerFrom(r *http.Request) *domain.Principal {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return &p
	}
	return nil
}

func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var startDate time.Time
	if strings.TrimSpace(req.StartDate) != "" {
		d, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, r, h.logger, domain.Validationf("start date must be YYYY-MM-DD"))
			return
		}
		startDate = d
	}

	election, err := h.service.CreateElection(r.Context(), ports.CreateElectionInput{
		Title:        req.Title,
		Year:         req.Year,
		StartDate:    startDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		CandidateIDs: req.CandidateIDs,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newElectionResponse(election, nil))
}

func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.service.ListElections(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newElectionResponses(elections, viewerFrom(r)))
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidElectionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	election, err := h.service.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newElectionResponse(election, viewerFrom(r)))
}

func (h *ElectionHandler) GetActiveElection(w http.ResponseWriter, r *http.Request) {
	election, err := h.service.GetActiveElection(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newElectionResponse(election, viewerFrom(r)))
}

func (h *ElectionHandler) ListClosedElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.service.ListClosedElections(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newElectionResponses(elections, viewerFrom(r)))
}

func (h *ElectionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.ComputeStats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ElectionHandler) StartElection(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidElectionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	actor, _ := PrincipalFrom(r.Context())

	election, err := h.service.StartElection(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newElectionResponse(election, nil))
}

func (h *ElectionHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidElectionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req castVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.CandidateID == uuid.Nil {
		writeError(w, r, h.logger, domain.ErrInvalidCandidateID)
		return
	}

	voter, _ := PrincipalFrom(r.Context())
	if err := h.service.CastVote(r.Context(), voter, id, req.CandidateID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", domain.ErrInvalidElectionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	actor, _ := PrincipalFrom(r.Context())

	winner, err := h.service.CloseElection(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, closeElectionResponse{ElectionID: id, Winner: winner})
}
