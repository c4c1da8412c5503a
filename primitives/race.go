package primitives

import (
	"context"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

// Race runs every op concurrently as children of a single umbrella child
// of fr. The first op to return or error wins; the umbrella Frame's own
// termination then halts its paired scope, which tears down every losing
// op in reverse insertion order before Race returns — the same
// finish-halts-own-scope sequencing frame.Frame already applies to every
// Frame, simply exercised here on an umbrella created for exactly this
// purpose. Ties among operations that have settled by the time a winner
// is picked break by listed index, not by which one happened to reach
// resultCh first.
func Race[T any](fr *frame.Frame, ops ...func(ctx context.Context, cfr *frame.Frame) (T, error)) (T, error) {
	var zero T
	if len(ops) == 0 {
		return zero, errs.NewProtocolError("Race", "no operations given")
	}

	h, err := Spawn[T](fr, func(ctx context.Context, ufr *frame.Frame) (T, error) {
		type result struct {
			idx int
			out frame.Outcome
		}
		resultCh := make(chan result, len(ops))
		for i, op := range ops {
			i, op := i, op
			child, serr := ufr.SpawnChild(func(ctx context.Context, cfr *frame.Frame) (any, error) {
				return op(ctx, cfr)
			})
			if serr != nil {
				return zero, serr
			}
			go func() {
				<-child.Done()
				resultCh <- result{idx: i, out: child.Outcome()}
			}()
		}

		settled := make(map[int]result, len(ops))
		for len(settled) < len(ops) {
			select {
			case r := <-resultCh:
				settled[r.idx] = r
			case <-ctx.Done():
				return zero, errs.ErrHalted
			}
			// Drain whatever else already landed in the same instant so
			// the winner is chosen by listed index, not arrival order.
		drain:
			for {
				select {
				case r := <-resultCh:
					settled[r.idx] = r
				default:
					break drain
				}
			}
			for i := range ops {
				r, ok := settled[i]
				if !ok || r.out.Kind == frame.Halted {
					continue
				}
				v, _ := r.out.Value.(T)
				return v, r.out.Err
			}
		}
		return zero, errs.NewProtocolError("Race", "every operation halted without settling")
	})
	if err != nil {
		return zero, err
	}
	return h.Join(fr)
}
