// Package otel provides a scope.Observer backed by a real OpenTelemetry
// tracer and meter: one span per Frame, plus scope/frame counters.
package otel
