// Package runtime provides the entry points that create a root Scope and
// Frame and hand back a typed Task: Run, Main, CreateScope, and the
// context-bridging RunWithContext.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/arborist/weave/internal/config"
	"github.com/arborist/weave/frame"
	"github.com/arborist/weave/scope"
	"github.com/arborist/weave/task"
)

var (
	defaultsOnce sync.Once
	defaults     config.Config
)

// defaultOpts applies internal/config's process-wide defaults as scope
// Options, for entry points invoked with no explicit opts of their own.
// Config is loaded once per process, from weave.toml and the WEAVE_*
// environment overrides documented on config.Load.
func defaultOpts() []scope.Option {
	defaultsOnce.Do(func() { defaults = config.Load("") })

	var opts []scope.Option
	if defaults.Runtime.DefaultMaxConcurrency > 0 {
		opts = append(opts, scope.WithMaxConcurrency(defaults.Runtime.DefaultMaxConcurrency))
	}
	if defaults.Runtime.DefaultHaltTimeout > 0 {
		opts = append(opts, scope.WithTimeout(defaults.Runtime.DefaultHaltTimeout))
	}
	return opts
}

// Run admits fn as the root computation of a fresh detached scope and
// returns a Task handle immediately; fn begins running on its own
// goroutine before Run returns.
func Run[T any](fn task.Func[T], opts ...scope.Option) task.Task[T] {
	return RunWithContext(context.Background(), fn, opts...)
}

// RunWithContext is Run, except the root Task is also halted the moment
// ctx is done — the Go-native rendering of spec's external cancellation
// bridge: any context.Context, including one from an incoming HTTP
// request or a signal handler, drives a root the same way UseAbortSignal
// exposes one from the inside, with no adapter shape needed. Once the root
// settles, its detached scope is halted as well.
func RunWithContext[T any](ctx context.Context, fn task.Func[T], opts ...scope.Option) task.Task[T] {
	if len(opts) == 0 {
		opts = defaultOpts()
	}
	s := scope.New(nil, nil, opts...)
	fr, err := s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) {
		return fn(ctx, fr)
	})
	if err != nil {
		// Admit only rejects work once the scope has left Open, which
		// cannot be true for a scope that was just constructed.
		panic(fmt.Sprintf("runtime: admit failed on a newly-constructed scope: %v", err))
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-fr.Done():
		}
		s.Halt()
	}()
	return task.New[T](fr)
}

// Main runs fn to completion, watching os.Interrupt and SIGTERM and
// halting the task if either arrives first. On success it returns the
// computation's value; on error it prints the error to stderr and exits
// the process with status 1 (spec's "Error channel" for main).
func Main[T any](fn task.Func[T], opts ...scope.Option) T {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := RunWithContext(ctx, fn, opts...)
	v, err := t.Join(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return v
}

// CreateScope constructs a detached root Scope directly, for callers that
// want to Admit several independent root computations into one shared
// lifetime rather than go through Run. destroy halts the scope and blocks
// until teardown completes (or ctx is done first), returning the scope's
// aggregate error.
func CreateScope(opts ...scope.Option) (s *scope.Scope, destroy func(ctx context.Context) error) {
	if len(opts) == 0 {
		opts = defaultOpts()
	}
	s = scope.New(nil, nil, opts...)
	destroy = func(ctx context.Context) error {
		// Halt blocks its caller until teardown finishes (it drives the
		// reverse-order child walk directly), so run it on its own
		// goroutine to let this call still respect ctx.
		done := make(chan struct{})
		go func() {
			<-s.Halt()
			close(done)
		}()
		select {
		case <-done:
			return s.Error()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s, destroy
}
