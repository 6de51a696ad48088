package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrUnknownPersona    = errors.New("unknown persona")
	ErrUnknownBriefing   = errors.New("unknown briefing kind")
	ErrEmptyMessage      = errors.New("message text is empty")
	ErrNothingToExport   = errors.New("no conversation to export")
	ErrEmptyCaseDocument = errors.New("case document is empty")
)

// FailureKind classifies a failed call to the completion capability.
type FailureKind string

const (
	// FailureTransient covers network failures, timeouts and rate limiting.
	FailureTransient FailureKind = "transient"
	// FailureFatal covers bad credentials, malformed requests and anything unclassified.
	FailureFatal FailureKind = "fatal"
)

// CompletionError is returned by completion backends with its failure class.
type CompletionError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *CompletionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retry-eligible failure.
func Transient(op string, err error) error {
	return &CompletionError{Kind: FailureTransient, Op: op, Err: err}
}

// Fatal wraps err as a failure that must not be retried.
func Fatal(op string, err error) error {
	return &CompletionError{Kind: FailureFatal, Op: op, Err: err}
}

// ClassifyFailure returns the failure class of err. Errors carrying a
// CompletionError keep their class; deadlines and network timeouts are
// transient; everything else is fatal.
func ClassifyFailure(err error) FailureKind {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTransient
	}
	return FailureFatal
}
