package backoff

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

// Class is the retry classification of a failure.
type Class int

const (
	Terminal  Class = iota // Fail immediately
	Retriable              // Transient; worth another attempt
)

func (c Class) String() string {
	switch c {
	case Retriable:
		return "retriable"
	default:
		return "terminal"
	}
}

// StatusError is implemented by errors that carry an HTTP status code.
type StatusError interface {
	error
	HTTPStatus() int
}

// RetryAfterError is implemented by errors that carry a server Retry-After hint.
type RetryAfterError interface {
	error
	RetryAfter() time.Duration
}

// TransientError is implemented by errors that know they are transient.
type TransientError interface {
	error
	Transient() bool
}

// Classify decides whether err is worth retrying.
func Classify(err error) Class {
	if err == nil || errors.Is(err, context.Canceled) {
		return Terminal
	}

	var se StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.HTTPStatus())
	}

	var te TransientError
	if errors.As(err, &te) && te.Transient() {
		return Retriable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Retriable
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Retriable
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return Retriable
	}

	return Terminal
}

func classifyStatus(code int) Class {
	if code == 429 || (code >= 500 && code < 600) {
		return Retriable
	}
	return Terminal
}

// RetryAfterHint extracts a positive server hint from err.
func RetryAfterHint(err error) (time.Duration, bool) {
	var ra RetryAfterError
	if errors.As(err, &ra) {
		if d := ra.RetryAfter(); d > 0 {
			return d, true
		}
	}
	return 0, false
}
