package primitives

import (
	"sync"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

type item[T any] struct {
	done  bool
	value T
}

// Subscription is a stateful FIFO reader over a Channel's broadcast: at
// most one pending Next call is allowed at a time.
type Subscription[T any] struct {
	mu     sync.Mutex
	buffer []item[T]
	waiter func(item[T])
}

func newSubscription[T any]() *Subscription[T] {
	return &Subscription[T]{}
}

// enqueue delivers it to a pending waiter if one is registered, otherwise
// appends to the buffer. A terminal item is always appended after
// whatever is already buffered, so undelivered values are drained by
// Next before the terminal is reached, and Next then leaves the terminal
// in the buffer so later calls keep replaying it instead of suspending
// forever.
func (s *Subscription[T]) enqueue(it item[T]) {
	s.mu.Lock()
	w := s.waiter
	if w != nil {
		s.waiter = nil
	}
	if it.done || w == nil {
		s.buffer = append(s.buffer, it)
	}
	s.mu.Unlock()
	if w != nil {
		w(it)
	}
}

// Next parks fr until a value (or the terminal) is available on this
// subscription, returning (done, value, err). After done is true, every
// later call returns that same terminal result without suspending again.
func (s *Subscription[T]) Next(fr *frame.Frame) (bool, T, error) {
	var zero T
	s.mu.Lock()
	if len(s.buffer) > 0 {
		it := s.buffer[0]
		s.buffer = s.buffer[1:]
		if it.done {
			s.buffer = []item[T]{it}
		}
		s.mu.Unlock()
		return it.done, it.value, nil
	}
	if s.waiter != nil {
		s.mu.Unlock()
		return false, zero, errs.NewProtocolError("Subscription.Next", "a waiter is already registered")
	}
	s.mu.Unlock()

	val, err := fr.Wait(func(resume func(any, error)) func() {
		s.mu.Lock()
		if len(s.buffer) > 0 {
			// A value landed after the buffer check above.
			it := s.buffer[0]
			s.buffer = s.buffer[1:]
			if it.done {
				s.buffer = []item[T]{it}
			}
			s.mu.Unlock()
			resume(it, nil)
			return nil
		}
		s.waiter = func(it item[T]) { resume(it, nil) }
		s.mu.Unlock()
		return func() {
			s.mu.Lock()
			s.waiter = nil
			s.mu.Unlock()
		}
	})
	if err != nil {
		return false, zero, err
	}
	it := val.(item[T])
	return it.done, it.value, nil
}

// Channel is a multi-subscriber broadcast point: Send enqueues v into
// every currently-attached subscriber, Close marks each with the same
// terminal value. Subscribers attached after Close immediately observe
// the terminal; subscribers attached before any Send never see sends
// that preceded their own Subscribe call, since only future sends reach
// a subscriber's buffer.
type Channel[T any] struct {
	mu       sync.Mutex
	subs     []*Subscription[T]
	closed   bool
	terminal item[T]
}

// NewChannel constructs an empty, open Channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Subscribe attaches a fresh Subscription.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := newSubscription[T]()
	if c.closed {
		sub.enqueue(c.terminal)
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Send enqueues v into every currently-attached subscriber. Sending on a
// closed channel, or one with zero subscribers, is silently dropped.
func (c *Channel[T]) Send(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	subs := append([]*Subscription[T](nil), c.subs...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.enqueue(item[T]{value: v})
	}
}

// Close marks every currently-attached subscriber's queue with the
// terminal value final and detaches them; later Subscribe calls see the
// same terminal immediately. Idempotent: a second Close is a no-op.
func (c *Channel[T]) Close(final T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.terminal = item[T]{done: true, value: final}
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		sub.enqueue(item[T]{done: true, value: final})
	}
}
