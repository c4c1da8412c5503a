package frame

import "context"

// detachedContext strips cancellation from parent while keeping its
// values, so a Frame's cleanup stack can still perform IO (close a
// socket, flush a buffer) even though the Frame itself was just
// cancelled. Grounded on the same separation roman-nll's Scope.Exit makes
// between a Reaper's context and the done-signal that triggered it.
func detachedContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}
