package primitives

import (
	"context"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

// Provider is a resource body: it acquires a value, delivers it to the
// acquiring call via provide, and then keeps running (typically parked on
// Suspend) until the acquiring scope begins teardown, so whatever it
// Ensures runs before the acquirer's scope advances to its next sibling.
type Provider[T any] func(ctx context.Context, fr *frame.Frame, provide func(T) error) error

// Acquire spawns provider as a child of fr and blocks until it calls
// provide, returning the provided value. The provider Frame stays alive,
// parked, as a child in fr's own scope. When fr finishes, that scope is
// halted before fr's cleanup stack drains, so the provider's own cleanup
// runs before every Ensure registered on fr, whatever the registration
// order. Acquire also registers an Ensure on fr that halts and awaits the
// provider and returns its error if it failed. A provider that returns
// without ever calling provide is a ProtocolError.
func Acquire[T any](fr *frame.Frame, provider Provider[T]) (T, error) {
	var zero T
	delivered := make(chan T, 1)

	child, err := fr.SpawnChild(func(ctx context.Context, pfr *frame.Frame) (any, error) {
		provided := false
		provide := func(v T) error {
			provided = true
			select {
			case delivered <- v:
			default:
			}
			return pfr.Suspend()
		}
		err := provider(ctx, pfr, provide)
		if !provided && err == nil {
			err = errs.NewProtocolError("Acquire", "provider returned without calling provide")
		}
		return nil, err
	})
	if err != nil {
		return zero, err
	}

	select {
	case v := <-delivered:
		fr.Ensure(func(context.Context) error {
			child.Halt()
			<-child.Done()
			if out := child.Outcome(); out.Kind == frame.Errored {
				return out.Err
			}
			return nil
		})
		return v, nil
	case <-child.Done():
		out := child.Outcome()
		if out.Kind == frame.Errored {
			return zero, out.Err
		}
		return zero, errs.NewProtocolError("Acquire", "provider exited without providing a value")
	case <-fr.Context().Done():
		return zero, errs.ErrHalted
	}
}
