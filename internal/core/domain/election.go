package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ElectionState string

const (
	ElectionStateDraft  ElectionState = "draft"
	ElectionStateActive ElectionState = "active"
	ElectionStateClosed ElectionState = "closed"
)

func (s ElectionState) Valid() bool {
	switch s {
	case ElectionStateDraft, ElectionStateActive, ElectionStateClosed:
		return true
	}
	return false
}

// MinCandidates is the smallest roster an election may be created with.
const MinCandidates = 2

// Election is the aggregate holding the roster snapshot, per-candidate
// tallies and voter ledger. All mutations go through its methods.
type Election struct {
	ID         uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	Year       int              `json:"year"`
	StartDate  time.Time        `json:"start_date"`
	StartTime  string           `json:"start_time"`
	EndTime    string           `json:"end_time"`
	Candidates []CandidateEntry `json:"candidates"`
	Winner     *Winner          `json:"winner,omitempty"`
	State      ElectionState    `json:"state"`
	Version    int64            `json:"version"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
}

// CandidateEntry is a per-election copy of a candidate taken at creation
// time together with that election's tally and ledger for the candidate.
type CandidateEntry struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Party       string    `json:"party"`
	LogoRef     string    `json:"logo_ref,omitempty"`
	VoteCount   int64     `json:"vote_count"`
	Votes       []Ballot  `json:"votes"`
}

type Ballot struct {
	VoterID uuid.UUID `json:"voter_id"`
	VotedAt time.Time `json:"voted_at"`
}

type Winner struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Party       string    `json:"party"`
	LogoRef     string    `json:"logo_ref,omitempty"`
}

type NewElectionParams struct {
	ID         uuid.UUID
	Title      string
	Year       int
	StartDate  time.Time
	StartTime  string
	EndTime    string
	Candidates []*Candidate
	Now        time.Time
}

// NewElection snapshots the given candidates into a draft election.
func NewElection(p NewElectionParams) (*Election, error) {
	if err := ValidateElectionFields(strings.TrimSpace(p.Title), p.Year, p.StartDate, p.StartTime, p.EndTime, len(p.Candidates)); err != nil {
		return nil, err
	}

	e := &Election{
		ID:        p.ID,
		Title:     strings.TrimSpace(p.Title),
		Year:      p.Year,
		StartDate: p.StartDate,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		State:     ElectionStateDraft,
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
	}

	seen := make(map[uuid.UUID]bool, len(p.Candidates))
	for _, c := range p.Candidates {
		if seen[c.ID] {
			return nil, Validationf("candidate %s listed more than once", c.ID)
		}
		seen[c.ID] = true
		e.Candidates = append(e.Candidates, CandidateEntry{
			CandidateID: c.ID,
			Name:        c.Name,
			Party:       c.Party,
			LogoRef:     c.LogoRef,
			Votes:       []Ballot{},
		})
	}

	return e, nil
}

// ValidateElectionFields reports every unmet creation constraint at once.
func ValidateElectionFields(title string, year int, startDate time.Time, startTime, endTime string, candidates int) error {
	var problems []string
	if title == "" {
		problems = append(problems, "title is required")
	}
	if year <= 0 {
		problems = append(problems, "year is required")
	}
	if startDate.IsZero() {
		problems = append(problems, "start date is required")
	}
	if candidates < MinCandidates {
		problems = append(problems, fmt.Sprintf("at least %d candidates are required", MinCandidates))
	}

	start, startErr := parseClock(startTime)
	if startErr != nil {
		problems = append(problems, "start time must be HH:MM")
	}
	end, endErr := parseClock(endTime)
	if endErr != nil {
		problems = append(problems, "end time must be HH:MM")
	}
	if startErr == nil && endErr == nil && startTime != "" && endTime != "" && !end.After(start) {
		problems = append(problems, "end time must be after start time")
	}

	if len(problems) > 0 {
		return Validationf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func parseClock(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("15:04", v)
}

// IsActive is the legacy boolean view of the state.
func (e *Election) IsActive() bool {
	return e.State == ElectionStateActive
}

func (e *Election) Start(now time.Time) error {
	switch e.State {
	case ElectionStateActive:
		return ErrAlreadyActive
	case ElectionStateClosed:
		return ErrElectionClosed
	}
	e.State = ElectionStateActive
	e.StartedAt = &now
	e.UpdatedAt = now
	return nil
}

// CastVote records voterID's ballot for candidateID. The election is left
// untouched when any check fails.
func (e *Election) CastVote(voterID, candidateID uuid.UUID, now time.Time) error {
	if e.State != ElectionStateActive {
		return ErrNotActive
	}

	idx := e.entryIndex(candidateID)
	if idx < 0 {
		return ErrInvalidCandidate
	}

	if e.HasVoted(voterID) {
		return ErrAlreadyVoted
	}

	entry := &e.Candidates[idx]
	entry.Votes = append(entry.Votes, Ballot{VoterID: voterID, VotedAt: now})
	entry.VoteCount++
	e.UpdatedAt = now
	return nil
}

// Close ends voting and declares the winner. Ties go to the candidate that
// appears first in the roster; an election without votes has no winner.
func (e *Election) Close(now time.Time) (*Winner, error) {
	if e.State != ElectionStateActive {
		return nil, ErrNotActive
	}

	e.Winner = e.leader()
	e.State = ElectionStateClosed
	e.ClosedAt = &now
	e.UpdatedAt = now
	return e.Winner, nil
}

func (e *Election) leader() *Winner {
	if e.TotalVotes() == 0 {
		return nil
	}

	var best *CandidateEntry
	maxVotes := int64(-1)
	for i := range e.Candidates {
		if e.Candidates[i].VoteCount > maxVotes {
			maxVotes = e.Candidates[i].VoteCount
			best = &e.Candidates[i]
		}
	}

	return &Winner{
		CandidateID: best.CandidateID,
		Name:        best.Name,
		Party:       best.Party,
		LogoRef:     best.LogoRef,
	}
}

// HasVoted derives from the ledger whether voterID voted in this election.
func (e *Election) HasVoted(voterID uuid.UUID) bool {
	for _, c := range e.Candidates {
		for _, b := range c.Votes {
			if b.VoterID == voterID {
				return true
			}
		}
	}
	return false
}

func (e *Election) HasCandidate(candidateID uuid.UUID) bool {
	return e.entryIndex(candidateID) >= 0
}

func (e *Election) entryIndex(candidateID uuid.UUID) int {
	for i, c := range e.Candidates {
		if c.CandidateID == candidateID {
			return i
		}
	}
	return -1
}

// TotalVotes counts ballots in the ledger.
func (e *Election) TotalVotes() int64 {
	var total int64
	for _, c := range e.Candidates {
		total += int64(len(c.Votes))
	}
	return total
}

// CheckInvariants returns one message per broken aggregate invariant.
func (e *Election) CheckInvariants() []string {
	var problems []string

	if !e.State.Valid() {
		problems = append(problems, fmt.Sprintf("unknown state %q", e.State))
	}
	if len(e.Candidates) < MinCandidates {
		problems = append(problems, fmt.Sprintf("roster has %d candidates", len(e.Candidates)))
	}

	var counted int64
	voters := make(map[uuid.UUID]uuid.UUID)
	for _, c := range e.Candidates {
		counted += c.VoteCount
		if c.VoteCount != int64(len(c.Votes)) {
			problems = append(problems, fmt.Sprintf("candidate %s: vote count %d does not match ledger size %d", c.CandidateID, c.VoteCount, len(c.Votes)))
		}
		for _, b := range c.Votes {
			if prev, ok := voters[b.VoterID]; ok {
				problems = append(problems, fmt.Sprintf("voter %s appears under candidates %s and %s", b.VoterID, prev, c.CandidateID))
				continue
			}
			voters[b.VoterID] = c.CandidateID
		}
	}
	if counted != e.TotalVotes() {
		problems = append(problems, fmt.Sprintf("total vote count %d does not match ledger size %d", counted, e.TotalVotes()))
	}

	if e.State != ElectionStateClosed && e.Winner != nil {
		problems = append(problems, "winner declared before close")
	}
	if e.State == ElectionStateClosed {
		expected := e.leader()
		switch {
		case expected == nil && e.Winner != nil:
			problems = append(problems, "winner declared for an election without votes")
		case expected != nil && e.Winner == nil:
			problems = append(problems, "closed election with votes has no winner")
		case expected != nil && expected.CandidateID != e.Winner.CandidateID:
			problems = append(problems, fmt.Sprintf("winner %s does not lead the tally", e.Winner.CandidateID))
		}
	}

	return problems
}

// Clone returns a deep copy so callers can mutate without sharing ledgers.
func (e *Election) Clone() *Election {
	c := *e
	c.Candidates = make([]CandidateEntry, len(e.Candidates))
	for i, entry := range e.Candidates {
		entry.Votes = append([]Ballot{}, entry.Votes...)
		c.Candidates[i] = entry
	}
	if e.Winner != nil {
		w := *e.Winner
		c.Winner = &w
	}
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	if e.ClosedAt != nil {
		t := *e.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
