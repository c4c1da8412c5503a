package frame

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/arborist/weave/errs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// noopScope satisfies Admitter and Scoped for frames that never spawn
// children and whose own scope is already closed.
type noopScope struct{}

func (noopScope) Admit(Func) (*Frame, error) { return nil, errs.NewProtocolError("Admit", "no children") }

func (noopScope) Halt() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (noopScope) Error() error { return nil }

func TestFrameReturnsValue(t *testing.T) {
	t.Parallel()
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		return 42, nil
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Returned || out.Value != 42 {
		t.Fatalf("expected Returned(42), got %+v", out)
	}
}

func TestFrameErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		return nil, boom
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Errored || !errors.Is(out.Err, boom) {
		t.Fatalf("expected Errored(boom), got %+v", out)
	}
}

func TestFramePanicBecomesError(t *testing.T) {
	t.Parallel()
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		panic("kaboom")
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Errored {
		t.Fatalf("expected panic to surface as Errored, got %+v", out)
	}
}

func TestFrameHaltWakesSuspend(t *testing.T) {
	t.Parallel()
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		return nil, fr.Suspend()
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	time.Sleep(10 * time.Millisecond)
	fr.Halt()
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Halted {
		t.Fatalf("expected Halted, got %+v", out)
	}
}

func TestFrameInjectErrorWakesSuspendWithCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("sibling failed")
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		return nil, fr.Suspend()
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	time.Sleep(10 * time.Millisecond)
	fr.InjectError(cause)
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Errored || !errors.Is(out.Err, cause) {
		t.Fatalf("expected Errored(cause), got %+v", out)
	}
}

func TestFrameEnsureRunsInReverseOrder(t *testing.T) {
	t.Parallel()
	var order []int
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		fr.Ensure(func(context.Context) error { order = append(order, 1); return nil })
		fr.Ensure(func(context.Context) error { order = append(order, 2); return nil })
		fr.Ensure(func(context.Context) error { order = append(order, 3); return nil })
		return nil, nil
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	<-fr.Done()
	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestFrameCleanupErrorSurfacesOnOtherwiseSuccessfulBody(t *testing.T) {
	t.Parallel()
	cleanupErr := errors.New("flush failed")
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		fr.Ensure(func(context.Context) error { return cleanupErr })
		return "ok", nil
	}, noopScope{}, noopScope{}, nil)
	fr.Start()
	<-fr.Done()
	out := fr.Outcome()
	if out.Kind != Errored {
		t.Fatalf("expected cleanup failure to surface as Errored, got %+v", out)
	}
}

func TestFrameOnTerminalCalledOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	fr := New(uuid.New(), func(ctx context.Context, fr *Frame) (any, error) {
		return nil, nil
	}, noopScope{}, noopScope{}, func(*Frame) { calls.Add(1) })
	fr.Start()
	<-fr.Done()
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected onTerminal called once, got %d", got)
	}
}
