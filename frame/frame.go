// Package frame implements the cooperative computation primitive described
// in the runtime's data model: a Frame is a single goroutine running a
// user computation, with an outcome slot written exactly once and a LIFO
// cleanup stack drained before that outcome becomes observable.
//
// The source model expresses a Frame as a resumable stepper yielding
// suspension descriptors (wait/spawn/register-cleanup/provide). Go has no
// native resumable-coroutine primitive, so this package takes Design
// Notes option (c): one goroutine per Frame, parked on channel selects
// instead of a hand-written stepper. Suspension descriptors become direct
// method calls a Frame's own goroutine makes against itself (Wait, Ensure,
// SpawnChild); only Wait ever blocks, and it always does so via select on
// a context so halting remains cooperative, matching spec's "no
// preemption" scheduling model even though Frames run on real goroutines.
package frame

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arborist/weave/errs"
)

// ID uniquely identifies a Frame for the lifetime of a process. Frames are
// looked up and logged by ID rather than by pointer so observability code
// can reference a Frame safely even after it has torn down.
type ID = uuid.UUID

// Kind classifies a Frame's terminal outcome.
type Kind int

const (
	// Pending means the Frame has not yet terminated.
	Pending Kind = iota
	// Returned means the computation produced a value.
	Returned
	// Errored means the computation (or its cleanup) failed.
	Errored
	// Halted means the computation was cancelled before it completed on
	// its own terms. Halted never propagates as an error.
	Halted
)

func (k Kind) String() string {
	switch k {
	case Returned:
		return "returned"
	case Errored:
		return "errored"
	case Halted:
		return "halted"
	default:
		return "pending"
	}
}

// Outcome is a Frame's terminal state: Kind discriminates which of Value
// or Err is meaningful.
type Outcome struct {
	Kind  Kind
	Value any
	Err   error
}

// Func is a single cooperative computation. It receives the Frame's own
// context (cancelled when the Frame is halted or its injected error is
// delivered) and the Frame itself, so it can call Wait/Ensure/SpawnChild.
type Func func(ctx context.Context, fr *Frame) (any, error)

// Admitter is whatever a Frame spawns new children into: the Frame's own
// paired Scope. Defined here (rather than importing package scope) so
// frame has no dependency on scope; scope.Scope satisfies this interface
// structurally.
type Admitter interface {
	Admit(fn Func) (*Frame, error)
}

// Scoped is implemented by a Frame's own Scope: it is halted and awaited
// to closed as part of the Frame's termination sequence (every Frame owns
// exactly one Scope holding whatever it itself spawned), and it exposes
// the aggregate error recorded from any of its children so the Frame's
// final outcome can be reconciled against it.
type Scoped interface {
	Halt() <-chan struct{}
	Error() error
}

// Frame is a single cooperative computation: one goroutine, one outcome,
// one cleanup stack.
type Frame struct {
	id  ID
	fn  Func
	own Admitter // where SpawnChild admits into (this Frame's own scope)
	scp Scoped   // the same object as own, used for teardown + error reconciliation

	ctx    context.Context
	cancel context.CancelFunc

	haltOnce sync.Once

	injectMu  sync.Mutex
	injected  error
	onTermina func(*Frame) // invoked once, after outcome is published

	cleanupMu sync.Mutex
	cleanups  []func(context.Context) error

	state atomic.Int32 // Kind, read by Outcome callers before the done channel closes

	doneCh    chan struct{}
	outcomeMu sync.Mutex
	outcome   Outcome
	published atomic.Bool
}

// New constructs a Frame that will run fn once started. own/scp are the
// Frame's own paired Scope (see package scope's Admit, which constructs
// both together). onTerminal is called exactly once, after the outcome is
// published, so the owning Scope can apply its child failure policy.
func New(id ID, fn Func, own Admitter, scp Scoped, onTerminal func(*Frame)) *Frame {
	ctx, cancel := context.WithCancel(context.Background())
	return &Frame{
		id:        id,
		fn:        fn,
		own:       own,
		scp:       scp,
		ctx:       ctx,
		cancel:    cancel,
		onTermina: onTerminal,
		doneCh:    make(chan struct{}),
	}
}

// ID returns the Frame's identity.
func (f *Frame) ID() ID { return f.id }

// Context returns the Frame's own context: cancelled on Halt/InjectError.
func (f *Frame) Context() context.Context { return f.ctx }

// Done reports when the Frame has fully terminated: outcome published,
// cleanup stack drained, and its own Scope fully closed.
func (f *Frame) Done() <-chan struct{} { return f.doneCh }

// State reports the Frame's current Kind without blocking; Pending until
// Done() closes.
func (f *Frame) State() Kind { return Kind(f.state.Load()) }

// IsDone reports whether the outcome has been published, without
// blocking on Done().
func (f *Frame) IsDone() bool { return f.published.Load() }

// Outcome returns the Frame's terminal state. Valid only after Done() is
// closed; returns a Pending outcome otherwise.
func (f *Frame) Outcome() Outcome {
	f.outcomeMu.Lock()
	defer f.outcomeMu.Unlock()
	return f.outcome
}

// Start launches the Frame's goroutine. Called exactly once by whatever
// admitted the Frame (package scope).
func (f *Frame) Start() {
	go f.run()
}

func (f *Frame) run() {
	f.state.Store(int32(Pending))
	var val any
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("frame panic: %v", r)
			}
		}()
		val, err = f.fn(f.ctx, f)
	}()
	f.finish(val, err)
}

func (f *Frame) finish(val any, bodyErr error) {
	kind, outVal, outErr := classify(bodyErr, val)

	// Lifetime containment: this Frame cannot be considered terminal
	// until everything it spawned is torn down.
	if f.scp != nil {
		<-f.scp.Halt()
		if scopeErr := f.scp.Error(); scopeErr != nil {
			kind = Errored
			outErr = errs.Attach(scopeErr, nonNilDistinct(outErr, scopeErr))
		}
	}

	if cleanupErrs := f.drainCleanups(); len(cleanupErrs) > 0 {
		if kind == Errored {
			outErr = &errs.CleanupError{Cause: outErr, Errs: cleanupErrs}
		} else {
			kind = Errored
			outErr = &errs.CleanupError{Errs: cleanupErrs}
		}
	}

	f.publish(kind, outVal, outErr)
}

// nonNilDistinct returns primary unless it is nil or already equal to
// extra (avoids re-attaching a child error to itself as its own
// suppressed cause when a Frame's body faithfully propagated it).
func nonNilDistinct(primary, extra error) error {
	if primary == nil || primary == extra {
		return nil
	}
	return primary
}

func classify(bodyErr error, val any) (Kind, any, error) {
	switch {
	case bodyErr == nil:
		return Returned, val, nil
	case bodyErr == errs.ErrHalted:
		return Halted, nil, nil
	default:
		return Errored, nil, bodyErr
	}
}

func (f *Frame) drainCleanups() []error {
	f.cleanupMu.Lock()
	stack := f.cleanups
	f.cleanups = nil
	f.cleanupMu.Unlock()

	teardownCtx := detachedContext(f.ctx)
	var errsList []error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i](teardownCtx); err != nil {
			errsList = append(errsList, err)
		}
	}
	return errsList
}

func (f *Frame) publish(kind Kind, val any, err error) {
	f.outcomeMu.Lock()
	f.outcome = Outcome{Kind: kind, Value: val, Err: err}
	f.outcomeMu.Unlock()
	f.state.Store(int32(kind))
	f.published.Store(true)
	if f.onTermina != nil {
		f.onTermina(f)
	}
	close(f.doneCh)
}

// Halt requests cooperative cancellation: the Frame's context is
// cancelled, waking any current Wait/Suspend with ErrHalted. Idempotent:
// a second call is a no-op.
func (f *Frame) Halt() {
	f.haltOnce.Do(f.cancel)
}

// InjectError delivers err as the cause of the Frame's next suspension
// point, used by a Scope to propagate a sibling's failure into the
// driving Frame. Only the first injected error is kept. Whichever of Halt
// or InjectError comes first cancels the context; a suspension point that
// wakes on that cancellation returns the injected error if one has been
// recorded by then, and ErrHalted otherwise.
func (f *Frame) InjectError(err error) {
	f.injectMu.Lock()
	if f.injected == nil {
		f.injected = err
	}
	f.injectMu.Unlock()
	f.haltOnce.Do(f.cancel)
}

func (f *Frame) injectedError() error {
	f.injectMu.Lock()
	defer f.injectMu.Unlock()
	return f.injected
}

// Ensure pushes thunk onto the cleanup stack. Cleanups run LIFO, each to
// completion, after the Frame's body and everything it spawned have
// terminated, before the Frame's outcome is published.
func (f *Frame) Ensure(thunk func(context.Context) error) {
	f.cleanupMu.Lock()
	f.cleanups = append(f.cleanups, thunk)
	f.cleanupMu.Unlock()
}

// SpawnChild admits fn as a new child Frame into this Frame's own Scope.
func (f *Frame) SpawnChild(fn Func) (*Frame, error) {
	return f.own.Admit(fn)
}

// Wait parks the Frame until registrar's resume callback fires, or the
// Frame is halted/injected, whichever comes first. registrar is invoked
// synchronously and must return an abort thunk (possibly nil) that is
// called, at most once, if the wait is cancelled instead of resumed.
func (f *Frame) Wait(registrar func(resume func(any, error)) func()) (any, error) {
	type result struct {
		v   any
		err error
	}
	resultCh := make(chan result, 1)
	var resumeOnce sync.Once
	resume := func(v any, err error) {
		resumeOnce.Do(func() { resultCh <- result{v, err} })
	}

	abort := registrar(resume)
	select {
	case r := <-resultCh:
		return r.v, r.err
	case <-f.ctx.Done():
		if abort != nil {
			abort()
		}
		if err := f.injectedError(); err != nil {
			return nil, err
		}
		return nil, errs.ErrHalted
	}
}

// Suspend parks the Frame until it is halted; it never resumes on its
// own.
func (f *Frame) Suspend() error {
	_, err := f.Wait(func(func(any, error)) func() { return nil })
	return err
}
