package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these,
// so callers can branch with errors.Is without looking at message text.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrDuplicateVote = errors.New("duplicate vote")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
)

var (
	ErrElectionNotFound   = newError(ErrNotFound, "election not found")
	ErrNoActiveElection   = newError(ErrNotFound, "no active election")
	ErrCandidateNotFound  = newError(ErrNotFound, "candidate not found")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrAlreadyActive      = newError(ErrInvalidState, "election already active")
	ErrAnotherActive      = newError(ErrInvalidState, "another election is already active")
	ErrNotActive          = newError(ErrInvalidState, "election is not active")
	ErrElectionClosed     = newError(ErrInvalidState, "election is closed")
	ErrCandidateInUse     = newError(ErrInvalidState, "candidate is on the roster of an election with recorded votes")
	ErrAlreadyVoted       = newError(ErrDuplicateVote, "voter has already voted in this election")
	ErrInvalidCandidate   = newError(ErrValidation, "invalid candidate for this election")
	ErrTitleTaken         = newError(ErrValidation, "election title already exists")
	ErrInvalidElectionID  = newError(ErrValidation, "invalid election id")
	ErrInvalidCandidateID = newError(ErrValidation, "invalid candidate id")
	ErrVersionConflict    = newError(ErrConflict, "election was modified concurrently")
	ErrAdminRequired      = newError(ErrForbidden, "admin role required")
	ErrVoterRequired      = newError(ErrForbidden, "only voters can cast votes")
)

// Error carries a human readable reason and the kind it belongs to.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Validationf builds an ad-hoc validation error.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// KindOf reports the kind an error belongs to, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrInvalidState, ErrDuplicateVote, ErrConflict, ErrForbidden} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
