// Package mux multiplexes hook resolution over a shared package watch
// session. Many independent hook watchers observe one underlying package
// source subscription; late joiners replay the latest snapshot.
package mux

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/hookmux/hookmux/internal/extension"
	"github.com/hookmux/hookmux/pkg/errutil"
)

// Source provides one-shot and continuous views of the current package set.
// Implementations live outside the core (see internal/source).
type Source interface {
	// Find fetches one snapshot of the current packages.
	Find(ctx context.Context) ([]extension.Package, error)

	// Watch registers fn to be invoked with an initial package list as soon
	// as one is available and again on every change. A non-nil err is
	// terminal: no further invocations follow it. The returned stop
	// function permanently cancels the subscription.
	Watch(fn func(pkgs []extension.Package, err error)) (stop func())
}

// HookUpdate is one emission of a hook watch stream. Err, when non-nil,
// reports a terminal source failure; the channel closes after it.
type HookUpdate struct {
	Extensions []extension.Extension
	Err        error
}

// PackagesUpdate is one emission of the package metadata stream.
type PackagesUpdate struct {
	Packages []extension.Metadata
	Err      error
}

// Mux resolves hooks against the package source and shares one watch
// session across all consumers. The zero state is idle: no source
// subscription exists until the first Watch or Packages call.
type Mux struct {
	source   Source
	resolver *extension.Resolver
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.Mutex
	session *watchSession
}

// Option configures a Mux.
type Option func(*Mux)

// WithResolver replaces the default resolver.
func WithResolver(r *extension.Resolver) Option {
	return func(m *Mux) { m.resolver = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mux) { m.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Mux) { m.metrics = metrics }
}

// New creates a Mux over source.
func New(source Source, opts ...Option) *Mux {
	m := &Mux{
		source:   source,
		resolver: extension.NewResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch returns a stream of classified extension lists for hook. The first
// element arrives as soon as the shared session holds a package snapshot;
// every subsequent source change re-resolves and emits. Cancelling ctx
// detaches this consumer only. The channel closes after a terminal source
// error (delivered as a final update) or after StopWatching.
func (m *Mux) Watch(ctx context.Context, hook string) <-chan HookUpdate {
	sess := m.ensureSession()
	ch := make(chan HookUpdate)
	done := make(chan struct{})

	deliver := func(ev event) bool {
		var up HookUpdate
		switch {
		case ev.complete:
			return false
		case ev.err != nil:
			up = HookUpdate{Err: ev.err}
		default:
			exts := m.resolver.Resolve(ctx, ev.pkgs, hook)
			m.observeResolution(hook, exts)
			up = HookUpdate{Extensions: exts}
		}
		select {
		case ch <- up:
			return ev.err == nil
		case <-ctx.Done():
			return false
		}
	}

	attach(m, ctx, sess, deliver, ch, done)
	return ch
}

// Packages returns a stream of package metadata lists sharing the watch
// session and replay semantics of Watch.
func (m *Mux) Packages(ctx context.Context) <-chan PackagesUpdate {
	sess := m.ensureSession()
	ch := make(chan PackagesUpdate)
	done := make(chan struct{})

	deliver := func(ev event) bool {
		var up PackagesUpdate
		switch {
		case ev.complete:
			return false
		case ev.err != nil:
			up = PackagesUpdate{Err: ev.err}
		default:
			metas := make([]extension.Metadata, 0, len(ev.pkgs))
			for _, pkg := range ev.pkgs {
				metas = append(metas, pkg.Metadata())
			}
			up = PackagesUpdate{Packages: metas}
		}
		select {
		case ch <- up:
			return ev.err == nil
		case <-ctx.Done():
			return false
		}
	}

	attach(m, ctx, sess, deliver, ch, done)
	return ch
}

// attach registers deliver on sess and wires ctx cancellation. ch is
// closed only from the subscriber goroutine, which owns the last send.
func attach[T any](m *Mux, ctx context.Context, sess *watchSession, deliver func(event) bool, ch chan T, done chan struct{}) {
	if m.metrics != nil {
		m.metrics.ActiveSubscribers.Inc()
	}
	closedFn := func() {
		close(ch)
		close(done)
		if m.metrics != nil {
			m.metrics.ActiveSubscribers.Dec()
		}
	}
	cancel := sess.subscribe(deliver, closedFn)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
}

// Load resolves hook against a one-shot package snapshot. It bypasses the
// shared session entirely: no session is established, touched, or notified.
func (m *Mux) Load(ctx context.Context, hook string) ([]extension.Extension, error) {
	pkgs, err := m.source.Find(ctx)
	if err != nil {
		return nil, oops.Code("SOURCE_FIND_FAILED").With("hook", hook).Wrap(err)
	}
	exts := m.resolver.Resolve(ctx, pkgs, hook)
	m.observeResolution(hook, exts)
	return exts, nil
}

// StopWatching cancels the shared source subscription, completes every
// subscriber stream, and returns the Mux to idle. Calling it while idle is
// a no-op. A later Watch or Packages call establishes a fresh session with
// an empty replay cell.
func (m *Mux) StopWatching() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	sess.close()
	m.logger.Info("stopped watching packages")
}

// IsWatching reports whether a shared watch session is active.
func (m *Mux) IsWatching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// ensureSession returns the active session, establishing the source
// subscription on first demand.
func (m *Mux) ensureSession() *watchSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return m.session
	}

	sess := newWatchSession(m.logger)
	m.session = sess
	if m.metrics != nil {
		m.metrics.SessionsStarted.Inc()
	}
	m.logger.Debug("establishing package watch session")

	// The source may invoke the callback synchronously, before Watch
	// returns; sess already accepts publishes.
	stop := m.source.Watch(func(pkgs []extension.Package, err error) {
		if err != nil {
			errutil.LogError(m.logger, "package source watch failed", err)
			sess.fail(err)
			return
		}
		sess.publish(pkgs)
	})
	sess.setStop(stop)
	return sess
}

func (m *Mux) observeResolution(hook string, exts []extension.Extension) {
	failures := 0
	for _, ext := range exts {
		if extension.IsErrored(ext) {
			failures++
		}
	}
	if failures > 0 {
		m.logger.Warn("hook resolved with load failures",
			"hook", hook,
			"extensions", len(exts),
			"failures", failures)
	}
	if m.metrics != nil {
		m.metrics.Resolutions.WithLabelValues(hook).Inc()
		m.metrics.LoadFailures.WithLabelValues(hook).Add(float64(failures))
	}
}
