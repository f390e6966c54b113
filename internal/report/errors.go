package report

import "errors"

var (
	// ErrNotFound is returned when the probe, node or replica is unknown.
	ErrNotFound = errors.New("not found")
	// ErrWrongMode is returned when the report kind is not allowed for the
	// node's mode.
	ErrWrongMode = errors.New("wrong mode")
	// ErrInvalidLoad is returned for load reports with unusable values.
	ErrInvalidLoad = errors.New("invalid load")
	// ErrMalformed is returned for bodies that are not a single valid report.
	ErrMalformed = errors.New("malformed report")
)

// Outcome is the externally visible result of a report or flush submission.
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeBadRequest Outcome = "bad_request"
	OutcomeWrongMode  Outcome = "wrong_mode"
	OutcomeNotFound   Outcome = "not_found"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// OutcomeOf maps an error returned by this package to an [Outcome].
// A nil error is accepted; unknown errors are treated as bad requests.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrWrongMode):
		return OutcomeWrongMode
	default:
		return OutcomeBadRequest
	}
}
