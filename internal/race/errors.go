package race

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid         = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrNotActive       = errors.New("competition not active")
	ErrConflict        = errors.New("conflict")
	ErrNoActiveSession = errors.New("no active swim session")
	ErrDoubleCount     = errors.New("double count detected")
	ErrInternal        = errors.New("internal error")
)

// ErrorKind classifies a rejection for the caller. Only KindDoubleCount is
// meant to be retried, after RetryAfter seconds.
type ErrorKind string

const (
	KindInvalid         ErrorKind = "invalid"
	KindNotFound        ErrorKind = "not_found"
	KindNotActive       ErrorKind = "not_active"
	KindConflict        ErrorKind = "conflict"
	KindNoActiveSession ErrorKind = "no_active_session"
	KindDoubleCount     ErrorKind = "double_count_suppressed"
	KindInternal        ErrorKind = "internal"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalid:
		return ErrInvalid
	case KindNotFound:
		return ErrNotFound
	case KindNotActive:
		return ErrNotActive
	case KindConflict:
		return ErrConflict
	case KindNoActiveSession:
		return ErrNoActiveSession
	case KindDoubleCount:
		return ErrDoubleCount
	default:
		return ErrInternal
	}
}

type Error struct {
	Op         string
	Kind       ErrorKind
	Msg        string
	RetryAfter int // seconds, only set for KindDoubleCount
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.RetryAfter > 0 {
		base += fmt.Sprintf(" (retry after %ds)", e.RetryAfter)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrConflict)
// works without unwrapping to *Error.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.Kind.sentinel()
}

func Errorf(op string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches op and kind to an underlying error.
func Wrap(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func Suppressed(op string, retryAfter int) *Error {
	return &Error{Op: op, Kind: KindDoubleCount, Msg: "double count detected", RetryAfter: retryAfter}
}

func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// RetryAfter returns the retry guidance carried by a double count rejection.
func RetryAfter(err error) int {
	var re *Error
	if errors.As(err, &re) && re.Kind == KindDoubleCount {
		return re.RetryAfter
	}
	return 0
}
