package minlp

import "github.com/pkg/errors"

// Error kinds surfaced upward by the engine. Handler and single-node engine
// failures are always recoverable (see processor.go); only an unbounded
// relaxation (processor.go panics on it) and internal contract violations
// abort the whole solve.
var (
	// ErrProblem flags malformed input or an unsupported construct.
	ErrProblem = errors.New("problem error")

	// ErrEngine flags a solver crash, unknown status, or protocol violation.
	ErrEngine = errors.New("engine error")

	// ErrNumeric flags an assertion that should be impossible: an unbounded
	// relaxation, or ub < lb after tightening.
	ErrNumeric = errors.New("numeric error")

	// ErrInfeasible is not a failure: a normal terminal status meaning the
	// problem has been proven infeasible.
	ErrInfeasible = errors.New("infeasibility proven")

	// ErrLimitReached is not a failure: time, iteration, or node limit hit.
	ErrLimitReached = errors.New("limit reached")
)

// wrapf attaches a cause chain to one of the sentinel kinds above so callers
// can errors.Is/errors.As while still getting a human message.
func wrapf(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
