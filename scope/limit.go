package scope

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrently-running children within a scope. Grounded
// on the teacher's scope.Limiter/semLimiter, adapted to gate Admit
// instead of a flat Go call: a scope with a limiter blocks new admissions
// once the bound is reached, releasing a slot only when the admitted
// Frame (and everything it itself spawned) has fully closed.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// semLimiter wraps golang.org/x/sync/semaphore.Weighted at weight 1 per
// slot, the same package the teacher's examples reached for to compose
// errgroup with bounded fan-out.
type semLimiter struct {
	sem *semaphore.Weighted
}

func newSemaphoreLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return &semLimiter{sem: semaphore.NewWeighted(int64(n))}
}

func (l *semLimiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *semLimiter) Release() {
	l.sem.Release(1)
}
