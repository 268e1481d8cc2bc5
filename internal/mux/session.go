package mux

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/hookmux/hookmux/internal/extension"
)

// event is one item on a subscriber's ordered queue. Exactly one of the
// three fields is meaningful: a package snapshot, a terminal source error,
// or stream completion.
type event struct {
	pkgs     []extension.Package
	err      error
	complete bool
}

// watchSession owns one live subscription to the package source and fans
// package-list snapshots out to registered subscribers. At most one session
// exists per Mux; all hook watchers and the metadata stream share it.
//
// The replay cell (latest/seeded) delivers the most recent snapshot to late
// joiners. Updates received before any subscriber attaches collapse to
// latest-only; after attach, every update is queued in arrival order.
type watchSession struct {
	logger *slog.Logger

	mu       sync.Mutex
	stop     func()
	latest   []extension.Package
	seeded   bool
	terminal error
	closed   bool
	subs     map[string]*subscriber
}

func newWatchSession(logger *slog.Logger) *watchSession {
	return &watchSession{
		logger: logger,
		subs:   make(map[string]*subscriber),
	}
}

// setStop stores the source cancellation capability. The source may invoke
// its callback before Watch returns, so the session must already accept
// publishes when this is called.
func (s *watchSession) setStop(stop func()) {
	s.mu.Lock()
	if s.closed {
		// Closed before the source subscription settled; cancel it now.
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

// publish records a new package snapshot and queues it to every subscriber.
func (s *watchSession) publish(pkgs []extension.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.terminal != nil {
		return
	}
	s.latest = pkgs
	s.seeded = true
	for _, sub := range s.subs {
		sub.enqueue(event{pkgs: pkgs})
	}
}

// fail marks the session terminally failed and propagates err to every
// subscriber. Later publishes are ignored.
func (s *watchSession) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.terminal != nil {
		return
	}
	s.terminal = err
	for _, sub := range s.subs {
		sub.enqueue(event{err: err})
	}
}

// close cancels the source subscription and completes every subscriber
// stream. Idempotent.
func (s *watchSession) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, sub := range subs {
		sub.enqueue(event{complete: true})
	}
}

// subscribe registers a consumer. deliver runs on a dedicated goroutine,
// receives events in order, and returns false to detach; closed runs once
// after the last deliver call. If the session already holds a snapshot the
// subscriber immediately receives it (replay-latest); if it has already
// failed, the subscriber immediately receives the terminal error.
//
// The returned cancel detaches this subscriber only; it never touches the
// shared source subscription.
func (s *watchSession) subscribe(deliver func(event) bool, closed func()) (cancel func()) {
	sub := &subscriber{
		id:      ulid.Make().String(),
		deliver: deliver,
		closed:  closed,
	}
	sub.cond = sync.NewCond(&sub.mu)

	s.mu.Lock()
	switch {
	case s.closed:
		sub.enqueue(event{complete: true})
	case s.terminal != nil:
		sub.enqueue(event{err: s.terminal})
	case s.seeded:
		sub.enqueue(event{pkgs: s.latest})
	}
	if !s.closed {
		s.subs[sub.id] = sub
	}
	s.mu.Unlock()

	sub.remove = func() {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
	}

	go sub.run()

	return sub.detach
}

// subscriberCount reports the number of attached subscribers.
func (s *watchSession) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// subscriber drains an ordered pending queue on its own goroutine so a slow
// consumer never blocks the source callback or sibling subscribers.
type subscriber struct {
	id      string
	deliver func(event) bool
	closed  func()
	remove  func()

	mu      sync.Mutex
	cond    *sync.Cond
	pending []event
	stopped bool
}

func (sub *subscriber) enqueue(ev event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	sub.pending = append(sub.pending, ev)
	sub.cond.Signal()
}

func (sub *subscriber) detach() {
	sub.mu.Lock()
	sub.stopped = true
	sub.cond.Signal()
	sub.mu.Unlock()
}

func (sub *subscriber) run() {
	for {
		sub.mu.Lock()
		for len(sub.pending) == 0 && !sub.stopped {
			sub.cond.Wait()
		}
		if sub.stopped {
			sub.mu.Unlock()
			break
		}
		ev := sub.pending[0]
		sub.pending = sub.pending[1:]
		sub.mu.Unlock()

		if !sub.deliver(ev) {
			break
		}
	}
	sub.detach()
	sub.remove()
	sub.closed()
}
