// Package metrics implements a scope.Observer backed by real Prometheus
// collectors, replacing the teacher's dependency-free in-memory counters
// (observe/prom in the reference repo) with the client_golang stack its
// own go.mod already declared but never imported.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arborist/weave/frame"
)

// Observer is a scope.Observer that records Scope/Frame lifecycle events
// as Prometheus metrics. The zero value is not usable; construct with New.
type Observer struct {
	scopesCreated prometheus.Counter
	scopesClosed  prometheus.Counter
	framesStarted prometheus.Counter
	framesByKind  *prometheus.CounterVec
	activeFrames  prometheus.Gauge
	frameDuration prometheus.Histogram

	mu      sync.Mutex
	started map[frame.ID]time.Time
}

// New constructs an Observer and registers its collectors with reg.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		scopesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_scopes_created_total",
			Help: "Total scopes constructed.",
		}),
		scopesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_scopes_closed_total",
			Help: "Total scopes that reached the closed state.",
		}),
		framesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_frames_started_total",
			Help: "Total frames admitted and started.",
		}),
		framesByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weave_frames_finished_total",
			Help: "Total frames that reached a terminal outcome, by kind.",
		}, []string{"kind"}),
		activeFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weave_frames_active",
			Help: "Frames currently running (started, not yet finished).",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weave_frame_duration_seconds",
			Help:    "Wall-clock duration from FrameStarted to FrameFinished.",
			Buckets: prometheus.DefBuckets,
		}),
		started: make(map[frame.ID]time.Time),
	}
	reg.MustRegister(o.scopesCreated, o.scopesClosed, o.framesStarted, o.framesByKind, o.activeFrames, o.frameDuration)
	return o
}

// ScopeCreated implements scope.Observer.
func (o *Observer) ScopeCreated(context.Context, uuid.UUID) {
	o.scopesCreated.Inc()
}

// ScopeClosing implements scope.Observer.
func (o *Observer) ScopeClosing(context.Context, uuid.UUID, error) {}

// ScopeClosed implements scope.Observer.
func (o *Observer) ScopeClosed(context.Context, uuid.UUID) {
	o.scopesClosed.Inc()
}

// FrameStarted implements scope.Observer.
func (o *Observer) FrameStarted(ctx context.Context, id frame.ID) {
	o.mu.Lock()
	o.started[id] = time.Now()
	o.mu.Unlock()
	o.framesStarted.Inc()
	o.activeFrames.Inc()
}

// FrameFinished implements scope.Observer.
func (o *Observer) FrameFinished(ctx context.Context, id frame.ID, kind frame.Kind, err error) {
	o.mu.Lock()
	start, ok := o.started[id]
	delete(o.started, id)
	o.mu.Unlock()

	o.activeFrames.Dec()
	o.framesByKind.WithLabelValues(kind.String()).Inc()
	if ok {
		o.frameDuration.Observe(time.Since(start).Seconds())
	}
}
