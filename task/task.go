// Package task provides the external, statically-typed handle to a root
// Frame: the boundary where an admitted computation's type-erased `any`
// outcome is recovered as a concrete T.
package task

import (
	"context"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

// ID identifies a Task for the lifetime of a process.
type ID = frame.ID

// Func is a root computation: the body a Task drives.
type Func[T any] func(ctx context.Context, fr *frame.Frame) (T, error)

// Task is the external handle to a root Frame admitted into a detached
// scope (see runtime.Run/runtime.Main/runtime.CreateScope). Unlike
// frame.Frame itself, Task recovers T at its boundary with a type
// assertion, the same split the teacher's untyped scope.Scope leaves to
// its own callers.
type Task[T any] struct {
	fr *frame.Frame
}

// New wraps an already-admitted root Frame as a Task[T]. Called by the
// runtime package, which owns admission; not meant to be constructed
// directly by user code.
func New[T any](fr *frame.Frame) Task[T] {
	return Task[T]{fr: fr}
}

// ID returns the underlying Frame's identity.
func (t Task[T]) ID() ID { return t.fr.ID() }

// Halt requests cooperative cancellation of the task and everything it
// spawned, returning a channel closed once teardown completes.
func (t Task[T]) Halt() <-chan struct{} {
	t.fr.Halt()
	return t.fr.Done()
}

// Join blocks until the task settles, or ctx is done first. On success it
// returns the computation's value; on halt it returns the zero value of T
// and errs.ErrHalted; on failure it returns the zero value and the
// propagated error (with any suppressed causes attached).
func (t Task[T]) Join(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-t.fr.Done():
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	out := t.fr.Outcome()
	switch out.Kind {
	case frame.Returned:
		v, ok := out.Value.(T)
		if !ok {
			return zero, errs.NewProtocolError("Join", "outcome value has unexpected type")
		}
		return v, nil
	case frame.Halted:
		return zero, errs.ErrHalted
	default:
		return zero, out.Err
	}
}

// Done reports when the task has fully terminated.
func (t Task[T]) Done() <-chan struct{} { return t.fr.Done() }

// State reports the task's current lifecycle state without blocking.
func (t Task[T]) State() frame.Kind { return t.fr.State() }
