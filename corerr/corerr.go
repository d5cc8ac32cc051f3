// Package corerr defines the error taxonomy shared by every core package.
//
// Recoverable errors travel as sentinel-wrapped values (handled silently by
// the lowest layer with a metric bump, per the global error policy).
// Unrecoverable errors are wrapped in Fatal so a top-level main can dump
// state before aborting the process.
package corerr

import "github.com/pkg/errors"

// Sentinel error kinds. Wrap with errors.Wrap/WithMessage for context.
var (
	// ErrInvalidState: a required state pointer is nil, or a state's hash
	// disagrees with the one supplied by the caller.
	ErrInvalidState = errors.New("invalid state")

	// ErrIllegalAction: State.Forward returned failure mid-rollout.
	ErrIllegalAction = errors.New("illegal action")

	// ErrEvaluatorTimeout: a batch reply did not arrive within timeout_us.
	ErrEvaluatorTimeout = errors.New("evaluator timeout")

	// ErrEvaluatorFailure: the evaluator reported FAILED/UNKNOWN status.
	ErrEvaluatorFailure = errors.New("evaluator failure")

	// ErrModelVersionMismatch: evaluator reply carried an unrequested model version.
	ErrModelVersionMismatch = errors.New("model version mismatch")

	// ErrRecordVersionMismatch: a record targets a non-current model.
	ErrRecordVersionMismatch = errors.New("record version mismatch")

	// ErrClientStuck: no heartbeat within max_delay_sec.
	ErrClientStuck = errors.New("client stuck")

	// ErrNotRequested: a record references a ModelPair never scheduled.
	ErrNotRequested = errors.New("record not requested")
)

// Fatal marks an error as a broken invariant: the process should emit full
// state and abort rather than attempt recovery.
type Fatal struct {
	cause error
}

// NewFatal wraps err as an unrecoverable error.
func NewFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{cause: err}
}

func (f *Fatal) Error() string { return "fatal: " + f.cause.Error() }
func (f *Fatal) Unwrap() error { return f.cause }

// IsFatal reports whether err (or anything it wraps) is a Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}
