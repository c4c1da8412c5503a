// Package errs defines the error taxonomy shared by frame, scope, task and
// primitives: halt sentinels, protocol violations, and the suppressed-chain
// wrapping used when cleanup or concurrent child failures pile onto a
// primary error.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHalted is returned by a suspension point (Wait, Suspend, Sleep, ...)
// when the owning Frame is cancelled. It is never itself surfaced as a
// Task error: a Frame whose outcome is Halted settles the Task with this
// sentinel only when the caller explicitly asked for the outcome (Join),
// never by wrapping an unrelated error.
var ErrHalted = errors.New("frame halted")

// ErrScopeClosed is returned by Scope.Admit once the scope has left the
// open state. No child may be admitted into a closing or closed scope.
var ErrScopeClosed = errors.New("scope: closed")

// ProtocolError signals misuse of the runtime's primitives, e.g. two
// concurrent readers on one Subscription, or a resource body that never
// calls Provide. It is fatal to the offending Frame and propagates as a
// user error per the normal child failure policy.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	if e.Op == "" {
		return "protocol violation: " + e.Msg
	}
	return fmt.Sprintf("protocol violation in %s: %s", e.Op, e.Msg)
}

// NewProtocolError builds a ProtocolError for operation op.
func NewProtocolError(op, msg string) error {
	return &ProtocolError{Op: op, Msg: msg}
}

// CleanupError wraps an error raised while draining a Frame's cleanup
// stack. Cause is the outcome error already in flight (nil if the Frame
// was otherwise succeeding), Errs holds the cleanup failures themselves in
// registration-reverse (i.e. execution) order.
type CleanupError struct {
	Cause error
	Errs  []error
}

func (e *CleanupError) Error() string {
	var b strings.Builder
	if e.Cause != nil {
		b.WriteString(e.Cause.Error())
		b.WriteString("; ")
	}
	b.WriteString("cleanup error")
	if len(e.Errs) > 1 {
		fmt.Fprintf(&b, "s (%d)", len(e.Errs))
	}
	b.WriteString(": ")
	for i, err := range e.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes both the original cause and every cleanup error so
// errors.Is/As can traverse the whole chain.
func (e *CleanupError) Unwrap() []error {
	out := make([]error, 0, len(e.Errs)+1)
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	out = append(out, e.Errs...)
	return out
}

// AggregateError is the "first wins, rest suppressed" shape mandated by
// spec for concurrent child errors within one Scope: Primary is the first
// observed error, Suppressed holds every later one, in observation order.
type AggregateError struct {
	Primary    error
	Suppressed []error
}

func (e *AggregateError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Primary.Error()
	}
	return fmt.Sprintf("%s (+%d suppressed)", e.Primary.Error(), len(e.Suppressed))
}

// Unwrap exposes the primary error and every suppressed one for
// errors.Is/As traversal.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, 0, len(e.Suppressed)+1)
	out = append(out, e.Primary)
	out = append(out, e.Suppressed...)
	return out
}

// Attach folds extra onto base, building or growing an AggregateError.
// A nil base simply returns extra; a nil extra returns base unchanged.
func Attach(base, extra error) error {
	if extra == nil {
		return base
	}
	if base == nil {
		return extra
	}
	if agg, ok := base.(*AggregateError); ok {
		agg.Suppressed = append(agg.Suppressed, extra)
		return agg
	}
	return &AggregateError{Primary: base, Suppressed: []error{extra}}
}
