package primitives

import (
	"context"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

// Handle is the recovered-type view of a spawned child Frame, mirroring
// task.Task's split between the type-erased Frame and its typed caller.
type Handle[T any] struct {
	fr *frame.Frame
}

// Spawn admits fn as a child of fr, returning a typed Handle immediately;
// fn begins running concurrently with fr's own continuation.
func Spawn[T any](fr *frame.Frame, fn func(ctx context.Context, cfr *frame.Frame) (T, error)) (Handle[T], error) {
	child, err := fr.SpawnChild(func(ctx context.Context, cfr *frame.Frame) (any, error) {
		return fn(ctx, cfr)
	})
	if err != nil {
		return Handle[T]{}, err
	}
	return Handle[T]{fr: child}, nil
}

// ID returns the spawned child's identity.
func (h Handle[T]) ID() frame.ID { return h.fr.ID() }

// Halt requests cooperative cancellation of the spawned child.
func (h Handle[T]) Halt() { h.fr.Halt() }

// Join parks fr until the spawned child settles, recovering T at the
// boundary. Waiting is itself interruptible: if fr is halted first, Join
// returns errs.ErrHalted without waiting for the child (which is torn
// down independently by its own scope's teardown).
func (h Handle[T]) Join(fr *frame.Frame) (T, error) {
	var zero T
	_, err := fr.Wait(func(resume func(any, error)) func() {
		stop := make(chan struct{})
		go func() {
			select {
			case <-h.fr.Done():
				resume(nil, nil)
			case <-stop:
			}
		}()
		return func() { close(stop) }
	})
	if err != nil {
		return zero, err
	}
	out := h.fr.Outcome()
	switch out.Kind {
	case frame.Returned:
		v, ok := out.Value.(T)
		if !ok {
			return zero, errs.NewProtocolError("Join", "spawned child's value has unexpected type")
		}
		return v, nil
	case frame.Halted:
		return zero, errs.ErrHalted
	default:
		return zero, out.Err
	}
}
