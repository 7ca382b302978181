package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type Stats struct {
	TotalElections int64   `json:"total_elections"`
	TotalVoters    int64   `json:"total_voters"`
	TotalVotes     int64   `json:"total_votes"`
	TurnoutPercent float64 `json:"turnout_percent"`
	Turnout        string  `json:"turnout"`
}

// NewStats derives turnout from the raw counts.
func NewStats(elections, voters, votes int64) *Stats {
	s := &Stats{
		TotalElections: elections,
		TotalVoters:    voters,
		TotalVotes:     votes,
		Turnout:        "0.00%",
	}
	if voters > 0 {
		s.TurnoutPercent = float64(votes) / float64(voters) * 100
		s.Turnout = fmt.Sprintf("%.2f%%", s.TurnoutPercent)
	}
	return s
}

// TallyViolation describes an election whose stored tally breaks an
// aggregate invariant.
type TallyViolation struct {
	ElectionID uuid.UUID `json:"election_id"`
	Title      string    `json:"title"`
	Problems   []string  `json:"problems"`
}
