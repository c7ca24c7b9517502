package embedding

import (
	"errors"

	"github.com/RyanBlaney/sonido-embed/algorithms/framing"
	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

var (
	// ErrInsufficientAudio is returned when a signal is shorter than one frame
	ErrInsufficientAudio = errors.New("insufficient audio")

	// ErrNonFinite is returned when a transform produced NaN or Inf that the
	// log floor could not absorb
	ErrNonFinite = errors.New("non-finite value in features")
)

// Kind classifies pipeline failures. Callers at a boundary map
// KindValidation to a client error and everything else to a server error.
type Kind int

const (
	// KindInternal is an unexpected failure, including decoder crashes
	KindInternal Kind = iota
	// KindValidation means the input is not usable audio
	KindValidation
	// KindConfiguration means the feature parameters are inconsistent
	KindConfiguration
	// KindComputation means a transform produced a non-finite value
	KindComputation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConfiguration:
		return "ConfigurationError"
	case KindComputation:
		return "ComputationError"
	default:
		return "InternalError"
	}
}

// Error is a classified pipeline error. Error() returns the underlying message
// unchanged so it can be shown to callers as is.
type Error struct {
	Kind Kind
	Op   string // pipeline stage, e.g. "decode", "aggregate"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return kindFromSentinel(err)
}

// IsValidation is shorthand for KindOf(err) == KindValidation
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

func kindFromSentinel(err error) Kind {
	switch {
	case errors.Is(err, transcode.ErrDecode),
		errors.Is(err, ErrInsufficientAudio),
		errors.Is(err, stats.ErrEmptyMatrix):
		return KindValidation
	case errors.Is(err, framing.ErrInvalidFraming):
		return KindConfiguration
	case errors.Is(err, ErrNonFinite):
		return KindComputation
	default:
		return KindInternal
	}
}

// wrap attaches op and a kind derived from err's sentinels. Errors that are
// already classified pass through untouched.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kindFromSentinel(err), Op: op, Err: err}
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
