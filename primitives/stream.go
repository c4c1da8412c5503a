package primitives

import (
	"iter"

	"github.com/arborist/weave/frame"
)

// Stream is a stateless recipe yielding a fresh Subscription each time
// it is consumed; two consumers of the same Stream share no state.
type Stream[T any] func() *Subscription[T]

// AsStream exposes c as a Stream: each call opens a new Subscription.
func (c *Channel[T]) AsStream() Stream[T] {
	return func() *Subscription[T] { return c.Subscribe() }
}

// Each opens a Subscription on stream and returns a range-over-func
// iterator pulling one value at a time via Subscription.Next: the loop
// body must return before the next value is requested, which is the
// back-pressure the source model calls out explicitly. The terminal
// `done=true` value is not iterated; read it from the returned final
// accessor once the range loop exits on its own (as opposed to via
// break, which leaves final's error/value at their zero state).
func Each[T any](fr *frame.Frame, stream Stream[T]) (seq iter.Seq[T], final func() (T, error)) {
	sub := stream()
	var finalValue T
	var finalErr error
	seq = func(yield func(T) bool) {
		for {
			done, v, err := sub.Next(fr)
			if err != nil {
				finalErr = err
				return
			}
			if done {
				finalValue = v
				return
			}
			if !yield(v) {
				return
			}
		}
	}
	final = func() (T, error) { return finalValue, finalErr }
	return seq, final
}
