package primitives

import (
	"context"

	"github.com/arborist/weave/frame"
)

// UseAbortSignal returns the context scoped to fr's lifetime: cancelled
// the moment fr is halted or has an error injected, after which ctx.Err
// reports context.Canceled. A body that returns that error ends Errored;
// only errs.ErrHalted gives the Frame a Halted outcome.
// A host abort-controller object (addEventListener/removeEventListener)
// would be redundant in Go, where context.Context already exposes Done
// and Err and every stdlib API that accepts cancellation already speaks
// the same interface — so this is the idiomatic rendering rather than a
// faithful port of a host AbortSignal shape.
func UseAbortSignal(fr *frame.Frame) context.Context {
	return fr.Context()
}
