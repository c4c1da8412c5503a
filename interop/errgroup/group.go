// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics on top of the scope/frame runtime. It enables call sites already
// written against errgroup to fan out onto structured concurrency without a
// rewrite.
package errgroup

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arborist/weave/frame"
	"github.com/arborist/weave/scope"
)

// Group is an errgroup-like wrapper over scope.Scope: Go admits a new child
// frame, Wait blocks for all of them and returns the first non-nil error.
type Group struct {
	s      *scope.Scope
	cancel context.CancelCauseFunc

	mu   sync.Mutex
	pend []*frame.Frame
}

// cancelOnError is the scope.Observer that backs WithContext's returned
// context: it fires cancel with the scope's failure as soon as the scope
// starts closing, mirroring errgroup's "first error cancels the group ctx"
// contract.
type cancelOnError struct {
	cancel context.CancelCauseFunc
}

func (c *cancelOnError) ScopeCreated(context.Context, uuid.UUID) {}

func (c *cancelOnError) ScopeClosing(_ context.Context, _ uuid.UUID, err error) {
	if err != nil {
		c.cancel(err)
	}
}

func (c *cancelOnError) ScopeClosed(context.Context, uuid.UUID) {}

func (c *cancelOnError) FrameStarted(context.Context, frame.ID) {}

func (c *cancelOnError) FrameFinished(context.Context, frame.ID, frame.Kind, error) {}

// WithContext returns a Group and a context derived from ctx. The derived
// context is canceled, with cause, the moment any Go func returns a non-nil
// error, or when ctx itself is canceled.
func WithContext(ctx context.Context) (*Group, context.Context) {
	gctx, cancel := context.WithCancelCause(ctx)
	s := scope.New(nil, &cancelOnError{cancel: cancel})
	go func() {
		<-gctx.Done()
		s.Halt()
	}()
	return &Group{s: s, cancel: cancel}, gctx
}

// Go admits f as a new child frame. A nil f is ignored. Go may be called
// concurrently with other calls to Go, but not after Wait has returned.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	fr, err := g.s.Admit(func(context.Context, *frame.Frame) (any, error) {
		return nil, f()
	})
	if err != nil {
		return
	}
	g.mu.Lock()
	g.pend = append(g.pend, fr)
	g.mu.Unlock()
}

// Wait blocks until every Go func has returned, tears down the group's
// scope, and returns the first error recorded (nil on success).
func (g *Group) Wait() error {
	g.mu.Lock()
	pend := g.pend
	g.mu.Unlock()
	for _, fr := range pend {
		<-fr.Done()
	}
	g.cancel(nil)
	<-g.s.Halt()
	return g.s.Error()
}
