package primitives

import (
	"context"
	"time"

	"github.com/arborist/weave/frame"
)

// Suspend parks fr until it is halted or injected with an error.
func Suspend(fr *frame.Frame) error {
	return fr.Suspend()
}

// Ensure registers thunk on fr's cleanup stack, run LIFO once fr and
// everything it spawned has terminated.
func Ensure(fr *frame.Frame, thunk func(context.Context) error) {
	fr.Ensure(thunk)
}

// Sleep parks fr for d, or until halted, whichever comes first.
func Sleep(fr *frame.Frame, d time.Duration) error {
	_, err := fr.Wait(func(resume func(any, error)) func() {
		timer := time.AfterFunc(d, func() { resume(nil, nil) })
		return func() { timer.Stop() }
	})
	return err
}
