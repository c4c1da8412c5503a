// Package scope implements the tree node that bounds Frame lifetimes.
//
// Every Scope either drives exactly one Frame (created together via
// Admit, and closing the moment that driving Frame terminates) or is
// detached, created directly with New for an external caller that admits
// and tears down frames explicitly (createScope in spec's terms) — the
// same shape the teacher's flat scope.Scope already provides, generalized
// here to serial reverse-order child teardown and tree nesting.
package scope

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

// State is a Scope's position in its open -> closing -> closed lifecycle.
type State int32

const (
	// Open accepts new children via Admit.
	Open State = iota
	// Closing rejects new children and is in the process of tearing
	// down existing ones.
	Closing
	// Closed is terminal: every child has reached closed.
	Closed
)

// Observer receives lifecycle events for metrics/tracing, mirroring the
// teacher's scope.Observer interface extended with the frame id each
// event concerns. A nil Observer is the zero-overhead default.
type Observer interface {
	ScopeCreated(ctx context.Context, id uuid.UUID)
	ScopeClosing(ctx context.Context, id uuid.UUID, cause error)
	ScopeClosed(ctx context.Context, id uuid.UUID)
	FrameStarted(ctx context.Context, id frame.ID)
	FrameFinished(ctx context.Context, id frame.ID, kind frame.Kind, err error)
}

// Scope owns a set of child Frames in insertion order and enforces that
// none outlives it.
type Scope struct {
	id     uuid.UUID
	parent *Scope
	obs    Observer

	state atomic.Int32

	mu           sync.Mutex
	children     []*frame.Frame
	local        map[any]any
	err          error
	closingBegun bool

	drivingFrame *frame.Frame // nil for detached scopes
	limiter      Limiter

	teardownOnce sync.Once
	closedCh     chan struct{}
}

// New creates a detached Scope with no driving Frame: an external caller
// admits computations into it directly (the Go rendering of spec's
// createScope) and must call Halt to tear it down.
func New(parent *Scope, obs Observer, opts ...Option) *Scope {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if obs == nil {
		obs = o.observer
	}
	s := &Scope{
		id:       uuid.New(),
		parent:   parent,
		obs:      obs,
		closedCh: make(chan struct{}),
	}
	if o.maxConcurrency > 0 {
		s.limiter = newSemaphoreLimiter(o.maxConcurrency)
	}
	if obs != nil {
		obs.ScopeCreated(context.Background(), s.id)
	}
	if !o.deadline.IsZero() {
		s.watchDeadline(time.Until(o.deadline))
	} else if o.timeout > 0 {
		s.watchDeadline(o.timeout)
	}
	return s
}

// watchDeadline halts the scope once d elapses, unless it closes sooner
// on its own.
func (s *Scope) watchDeadline(d time.Duration) {
	if d <= 0 {
		go s.Halt()
		return
	}
	timer := time.AfterFunc(d, func() { s.Halt() })
	go func() {
		<-s.closedCh
		timer.Stop()
	}()
}

// ID returns the scope's identity.
func (s *Scope) ID() uuid.UUID { return s.id }

// State reports the scope's current lifecycle state.
func (s *Scope) State() State { return State(s.state.Load()) }

// Error returns the aggregate error recorded from this scope's own
// children (first-wins, rest suppressed), or nil if none failed.
func (s *Scope) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Admit creates and starts a new child Frame running fn, paired with its
// own fresh Scope (everything fn itself spawns lands there). It fails
// with errs.ErrScopeClosed once this scope has left Open.
func (s *Scope) Admit(fn frame.Func) (*frame.Frame, error) {
	if fn == nil {
		return nil, errs.NewProtocolError("Admit", "nil computation")
	}
	if s.limiter != nil {
		// Acquire before checking state: a scope that is closing will
		// never release blocked acquirers via cancellation here (no ctx
		// of our own to select on), so re-check state after acquiring.
		if err := s.limiter.Acquire(context.Background()); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if State(s.state.Load()) != Open {
		s.mu.Unlock()
		if s.limiter != nil {
			s.limiter.Release()
		}
		return nil, errs.ErrScopeClosed
	}

	own := New(s, s.obs)
	id := uuid.New()
	limiter := s.limiter
	fr := frame.New(id, fn, own, own, func(child *frame.Frame) {
		if limiter != nil {
			limiter.Release()
		}
		s.childTerminated(child)
	})
	own.drivingFrame = fr
	s.children = append(s.children, fr)
	s.mu.Unlock()

	if s.obs != nil {
		s.obs.FrameStarted(context.Background(), id)
	}
	fr.Start()
	return fr, nil
}

// LocalSet stores value under key in this scope's local map.
func (s *Scope) LocalSet(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local == nil {
		s.local = make(map[any]any)
	}
	s.local[key] = value
}

// LocalGet walks this scope and its ancestors for key, returning the
// first binding found.
func (s *Scope) LocalGet(key any) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		v, ok := cur.local[key]
		cur.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// childTerminated applies the child failure policy (spec §4.2): a
// returned or halted child is simply recorded; an errored child begins
// closing this scope, halts the remaining siblings in reverse insertion
// order, and — once they are drained — injects the error into the
// driving Frame's next suspension point. Concurrent errors: first wins,
// the rest are attached as suppressed causes.
func (s *Scope) childTerminated(fr *frame.Frame) {
	out := fr.Outcome()
	if s.obs != nil {
		s.obs.FrameFinished(context.Background(), fr.ID(), out.Kind, out.Err)
	}
	if out.Kind != frame.Errored {
		return
	}

	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = out.Err
	} else {
		s.err = errs.Attach(s.err, out.Err)
	}
	alreadyClosing := s.closingBegun
	s.closingBegun = true
	s.mu.Unlock()

	if alreadyClosing {
		return
	}

	s.state.CompareAndSwap(int32(Open), int32(Closing))
	if s.obs != nil {
		s.obs.ScopeClosing(context.Background(), s.id, out.Err)
	}
	go func() {
		s.teardownChildren(fr)
		if s.drivingFrame != nil {
			s.drivingFrame.InjectError(s.Error())
		}
	}()
}

// teardownChildren halts every admitted child other than skip, strictly
// serially in reverse insertion order, waiting for each to fully close
// before starting the previous one.
func (s *Scope) teardownChildren(skip *frame.Frame) {
	s.mu.Lock()
	snapshot := make([]*frame.Frame, len(s.children))
	copy(snapshot, s.children)
	s.mu.Unlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		child := snapshot[i]
		if child == skip {
			continue
		}
		child.Halt()
		<-child.Done()
	}
}

// Halt transitions the scope to closing (if not already), halts its
// driving Frame (if any, so the computation itself stops cooperating)
// together with every admitted child in reverse insertion order, then
// transitions to closed. Idempotent: concurrent or repeated calls all
// observe the same closedCh.
func (s *Scope) Halt() <-chan struct{} {
	s.teardownOnce.Do(func() {
		s.state.Store(int32(Closing))
		if s.obs != nil {
			s.obs.ScopeClosing(context.Background(), s.id, s.Error())
		}
		if s.drivingFrame != nil {
			s.drivingFrame.Halt()
		}
		s.teardownChildren(nil)
		s.state.Store(int32(Closed))
		if s.obs != nil {
			s.obs.ScopeClosed(context.Background(), s.id)
		}
		close(s.closedCh)
	})
	return s.closedCh
}
