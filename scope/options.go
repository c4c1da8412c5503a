package scope

import "time"

// Option configures a detached Scope at construction time. Options are
// for the entry points (runtime.Run/runtime.CreateScope); the implicit
// per-Frame scope created by Admit never carries them — concurrency
// limits and deadlines are a property of a top-level scope, not
// something descendants inherit automatically.
type Option func(*options)

type options struct {
	maxConcurrency int
	timeout        time.Duration
	deadline       time.Time
	observer       Observer
}

// WithMaxConcurrency bounds the number of concurrently-running children
// admitted into the scope; once the bound is reached, Admit blocks until a
// slot frees. That wait observes no Frame's context and cannot be
// cancelled.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// WithTimeout halts the scope once d elapses since construction, unless
// WithDeadline is also supplied (which takes precedence).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDeadline halts the scope at the given absolute time.
func WithDeadline(t time.Time) Option {
	return func(o *options) { o.deadline = t }
}

// WithObserver installs obs on the detached scope being constructed. Only
// meaningful passed to New directly; Admit's implicit per-Frame scopes
// always inherit their parent's observer instead.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}
