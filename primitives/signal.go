package primitives

// Signal is a Channel whose Send is meant to be handed directly to a host
// callback (an http.HandlerFunc, an os/signal handler, a UI event
// binding) rather than called from inside a Frame body. Buffering
// semantics are identical to Channel; Signal only narrows the exposed
// surface to what an external caller needs.
type Signal[T any] struct {
	ch *Channel[T]
}

// NewSignal constructs an empty, open Signal.
func NewSignal[T any]() Signal[T] {
	return Signal[T]{ch: NewChannel[T]()}
}

// Send delivers v to every currently-attached subscriber. Safe to call
// from any goroutine, including one outside the runtime entirely.
func (s Signal[T]) Send(v T) { s.ch.Send(v) }

// Close marks every currently-attached subscriber with the terminal
// value final.
func (s Signal[T]) Close(final T) { s.ch.Close(final) }

// Subscribe attaches a fresh Subscription, for use from inside a Frame
// body via Subscription.Next.
func (s Signal[T]) Subscribe() *Subscription[T] { return s.ch.Subscribe() }

// AsStream exposes the Signal as a Stream.
func (s Signal[T]) AsStream() Stream[T] { return s.ch.AsStream() }
