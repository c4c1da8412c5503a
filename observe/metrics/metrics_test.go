package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/arborist/weave/frame"
	"github.com/arborist/weave/scope"
)

func TestObserverCountsFramesByKind(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	obs := New(reg)

	s := scope.New(nil, obs)
	for i := 0; i < 2; i++ {
		if _, err := s.Admit(func(context.Context, *frame.Frame) (any, error) { return nil, nil }); err != nil {
			t.Fatalf("unexpected admit error: %v", err)
		}
	}
	<-s.Halt()

	mf, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	found := false
	for _, fam := range mf {
		if fam.GetName() != "weave_frames_finished_total" {
			continue
		}
		for _, m := range fam.Metric {
			if counterMatchesKindReturned(m) && m.GetCounter().GetValue() == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected weave_frames_finished_total{kind=\"returned\"} == 2")
	}
}

func counterMatchesKindReturned(m *dto.Metric) bool {
	for _, l := range m.Label {
		if l.GetName() == "kind" && l.GetValue() == "returned" {
			return true
		}
	}
	return false
}
