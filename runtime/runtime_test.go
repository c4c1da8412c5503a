package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/arborist/weave/errs"
	"github.com/arborist/weave/frame"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunReturnsValue(t *testing.T) {
	t.Parallel()
	task := Run(func(ctx context.Context, fr *frame.Frame) (int, error) {
		return 5, nil
	})
	v, err := task.Join(context.Background())
	if err != nil || v != 5 {
		t.Fatalf("expected (5, nil), got (%v, %v)", v, err)
	}
}

func TestRunPropagatesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	task := Run(func(ctx context.Context, fr *frame.Frame) (int, error) {
		return 0, boom
	})
	_, err := task.Join(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunWithContextHaltsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	task := RunWithContext(ctx, func(ctx context.Context, fr *frame.Frame) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, errs.ErrHalted
	})
	<-started
	cancel()
	_, err := task.Join(context.Background())
	if !errors.Is(err, errs.ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
}

// TestCreateScopeAppliesConfiguredMaxConcurrency is deliberately not
// parallel: it resets the package-level config cache so WEAVE_MAX_CONCURRENCY
// actually takes effect, and must finish before any t.Parallel tests in
// this file resume and call defaultOpts concurrently.
func TestCreateScopeAppliesConfiguredMaxConcurrency(t *testing.T) {
	defaultsOnce = sync.Once{}
	t.Setenv("WEAVE_MAX_CONCURRENCY", "1")
	t.Cleanup(func() { defaultsOnce = sync.Once{} })

	s, destroy := CreateScope()
	defer destroy(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	if _, err := s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) {
		close(started)
		<-release
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}
	<-started

	admitted := make(chan struct{})
	go func() {
		_, _ = s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) { return nil, nil })
		close(admitted)
	}()
	select {
	case <-admitted:
		t.Fatal("expected second Admit to block while the configured max concurrency of 1 is in use")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-admitted
}

func TestCreateScopeAdmitsIndependentRoots(t *testing.T) {
	t.Parallel()
	s, destroy := CreateScope()
	fr1, err := s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) {
		return "a", nil
	})
	if err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}
	fr2, err := s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) {
		return "b", nil
	})
	if err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}
	<-fr1.Done()
	<-fr2.Done()
	if err := destroy(context.Background()); err != nil {
		t.Fatalf("unexpected destroy error: %v", err)
	}
}

func TestCreateScopeDestroyRespectsContext(t *testing.T) {
	t.Parallel()
	s, destroy := CreateScope()
	_, err := s.Admit(func(ctx context.Context, fr *frame.Frame) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected admit error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := destroy(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	<-s.Halt()
}
