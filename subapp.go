package phasor

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// subAppReadyTimeout bounds the wait for a worker's readiness signal.
const subAppReadyTimeout = 5 * time.Second

// Channel ends are wrapped as world resources so the parameter wrappers can
// resolve them by type. Parent-side and child-side ends get distinct types:
// a world that is both a child and a parent (a sub-app chaining its own
// sub-app) must hold both without collision.
type parentInboxRes[T any] struct{ ch *Channel[T] }
type parentOutboxRes[T any] struct{ ch *Channel[T] }
type childInboxRes[T any] struct{ ch *Channel[T] }
type childOutboxRes[T any] struct{ ch *Channel[T] }

// SubApp runs an isolated App on its own goroutine, connected to its parent
// exclusively through two bounded channels: an inbox (parent to child) and
// an outbox (child to parent).
type SubApp[In, Out any] struct {
	app       *App
	inboxCap  int
	outboxCap int

	inbox  *Channel[In]
	outbox *Channel[Out]
	parent *App

	stopFlag  atomic.Bool
	workerErr atomic.Pointer[error]
	ready     chan struct{}
	done      chan struct{}
	started   bool
}

// NewSubApp wraps app with channels of the given capacities. Capacities of
// 0 fall back to the parent's configured defaults at Start.
func NewSubApp[In, Out any](app *App, inboxCap, outboxCap int) *SubApp[In, Out] {
	return &SubApp[In, Out]{app: app, inboxCap: inboxCap, outboxCap: outboxCap}
}

// App returns the inner application.
func (s *SubApp[In, Out]) App() *App { return s.app }

// Err returns the error recorded by the worker, if any.
func (s *SubApp[In, Out]) Err() error {
	if p := s.workerErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *SubApp[In, Out]) recordErr(err error) {
	if err == nil {
		return
	}
	if !s.workerErr.CompareAndSwap(nil, &err) {
		return
	}
	log().Error().Err(err).Msg("sub-app worker error")
}

// Start spawns the worker goroutine. The child ends of both channels are
// installed as resources in the child world before readiness is signalled;
// the parent ends are installed in the parent world here. Start fails with
// ErrWorkerFailed when the worker records an error before readiness, and
// ErrWorkerNeverReady when the readiness signal never arrives.
func (s *SubApp[In, Out]) Start(parent *App) error {
	if s.started {
		return ErrAlreadyStarted
	}
	inCap, outCap := s.inboxCap, s.outboxCap
	if inCap <= 0 {
		inCap = defaultChannelCapacity
		if cfg, ok := parent.Config(); ok && cfg.InboxCapacity > 0 {
			inCap = cfg.InboxCapacity
		}
	}
	if outCap <= 0 {
		outCap = defaultChannelCapacity
		if cfg, ok := parent.Config(); ok && cfg.OutboxCapacity > 0 {
			outCap = cfg.OutboxCapacity
		}
	}
	s.inbox = NewChannel[In](inCap)
	s.outbox = NewChannel[Out](outCap)
	s.stopFlag.Store(false)
	s.workerErr.Store(nil)
	s.ready = make(chan struct{})
	s.done = make(chan struct{})

	go s.worker()

	select {
	case <-s.ready:
	case <-time.After(subAppReadyTimeout):
		return ErrWorkerNeverReady
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerFailed, err)
	}

	InsertResource(parent.world.resources, parentInboxRes[In]{ch: s.inbox})
	InsertResource(parent.world.resources, parentOutboxRes[Out]{ch: s.outbox})
	s.parent = parent
	s.started = true
	return nil
}

// worker is the child loop: install channel resources, signal readiness,
// sweep startup, step until Exit or the stop flag, sweep shutdown.
func (s *SubApp[In, Out]) worker() {
	defer close(s.done)
	child := s.app
	InsertResource(child.world.resources, childInboxRes[In]{ch: s.inbox})
	InsertResource(child.world.resources, childOutboxRes[Out]{ch: s.outbox})
	close(s.ready)

	if err := child.runFrom(PreStartup); err != nil {
		s.recordErr(err)
		return
	}
	for !s.stopFlag.Load() {
		if err := child.Step(); err != nil {
			s.recordErr(err)
			break
		}
		if HasResource[Exit](child.world.resources) {
			break
		}
		runtime.Gosched()
	}
	if err := child.runFrom(PreShutdown); err != nil {
		s.recordErr(err)
	}
}

// Stop sets the stop flag, closes both channels (which unblocks any child
// system parked on a channel operation), joins the worker, and removes the
// parent-side resources. Stopping twice is well-formed.
func (s *SubApp[In, Out]) Stop() {
	if !s.started {
		return
	}
	s.stopFlag.Store(true)
	s.inbox.Close()
	s.outbox.Close()
	<-s.done
	if s.parent != nil {
		RemoveResource[parentInboxRes[In]](s.parent.world.resources)
		RemoveResource[parentOutboxRes[Out]](s.parent.world.resources)
		s.parent = nil
	}
	s.started = false
}

// Deinit stops the worker if needed and closes the inner app. Idempotent.
func (s *SubApp[In, Out]) Deinit() {
	s.Stop()
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

// InboxSender is the parent-side handle sending commands into a sub-app.
type InboxSender[T any] struct {
	ch *Channel[T]
}

func (p *InboxSender[T]) initSystemParam(c *Commands, _ uint64) error {
	res, ok := GetResource[parentInboxRes[T]](c.world.resources)
	if !ok {
		return ErrMissingSubAppResource
	}
	p.ch = res.ch
	return nil
}

// Send blocks until the inbox accepts v or closes.
func (p *InboxSender[T]) Send(v T) error { return p.ch.Send(v) }

// TrySend enqueues without blocking.
func (p *InboxSender[T]) TrySend(v T) error { return p.ch.TrySend(v) }

// OutboxReceiver is the parent-side handle draining a sub-app's replies.
type OutboxReceiver[T any] struct {
	ch *Channel[T]
}

func (p *OutboxReceiver[T]) initSystemParam(c *Commands, _ uint64) error {
	res, ok := GetResource[parentOutboxRes[T]](c.world.resources)
	if !ok {
		return ErrMissingSubAppResource
	}
	p.ch = res.ch
	return nil
}

// Recv blocks until a reply arrives or the outbox closes.
func (p *OutboxReceiver[T]) Recv() (T, error) { return p.ch.Recv() }

// TryRecv dequeues without blocking.
func (p *OutboxReceiver[T]) TryRecv() (T, bool) { return p.ch.TryRecv() }

// InboxReceiver is the child-side handle draining the parent's commands.
type InboxReceiver[T any] struct {
	ch *Channel[T]
}

func (p *InboxReceiver[T]) initSystemParam(c *Commands, _ uint64) error {
	res, ok := GetResource[childInboxRes[T]](c.world.resources)
	if !ok {
		return ErrMissingSubAppResource
	}
	p.ch = res.ch
	return nil
}

// Recv blocks until a command arrives or the inbox closes.
func (p *InboxReceiver[T]) Recv() (T, error) { return p.ch.Recv() }

// TryRecv dequeues without blocking.
func (p *InboxReceiver[T]) TryRecv() (T, bool) { return p.ch.TryRecv() }

// OutboxSender is the child-side handle publishing replies to the parent.
type OutboxSender[T any] struct {
	ch *Channel[T]
}

func (p *OutboxSender[T]) initSystemParam(c *Commands, _ uint64) error {
	res, ok := GetResource[childOutboxRes[T]](c.world.resources)
	if !ok {
		return ErrMissingSubAppResource
	}
	p.ch = res.ch
	return nil
}

// Send blocks until the outbox accepts v or closes.
func (p *OutboxSender[T]) Send(v T) error { return p.ch.Send(v) }

// TrySend enqueues without blocking.
func (p *OutboxSender[T]) TrySend(v T) error { return p.ch.TrySend(v) }
