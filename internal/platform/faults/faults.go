package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueueEmpty signals that no job was available to claim.
	ErrQueueEmpty = errors.New("queue empty")
)

// Kind classifies a failure so the pipeline and the job controller can pick
// the right policy: fail now, retry the job, or skip the item.
type Kind int

const (
	// KindTransient covers infrastructure hiccups: connection resets,
	// deadlocks, serialization failures, rate limits, timeouts. The job may
	// be retried.
	KindTransient Kind = iota
	// KindFatal covers unrecoverable input problems: missing files,
	// provider schema mismatches after local retries. The job must fail.
	KindFatal
	// KindSoft covers per-item failures; the stage skips the item and
	// continues.
	KindSoft
	// KindInvariant covers programming errors (e.g. non-monotonic scenes);
	// the job fails and the error surfaces loudly.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindSoft:
		return "soft"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Fault wraps an error with its classification.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindTransient, Err: err}
}

// Fatal wraps err as unrecoverable for the current job.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindFatal, Err: err}
}

// Soft wraps err as a per-item failure.
func Soft(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindSoft, Err: err}
}

// Invariantf reports a broken invariant.
func Invariantf(format string, args ...any) error {
	return &Fault{Kind: KindInvariant, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the classification of err. Unclassified errors are treated
// as transient so that infrastructure noise never burns a job permanently.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransient
}

// IsFatal reports whether err must fail the job immediately.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindFatal || k == KindInvariant
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
