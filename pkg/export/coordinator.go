package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// Events emitted on the coordinator's channel. Progress events may be
// coalesced under load (newest wins); state events are always delivered, in
// order, and never after the session's terminal event.

// EstimateReadyEvent is sent when estimation succeeds and the coordinator is
// awaiting confirmation.
type EstimateReadyEvent struct {
	SessionID uint64
}

// ProgressEvent carries transfer progress for the active session.
type ProgressEvent struct {
	Progress
}

// StateEvent is sent on every state transition, terminal ones included.
type StateEvent struct {
	SessionID uint64
	State     State
}

// Event is one coordinator notification.
type Event any

// Coordinator owns at most one in-flight export and enforces the
// idle → estimating → confirmed → exporting → terminal lifecycle. Feature
// code builds a Config and calls Initiate; everything else flows back out on
// Events. Executors never surface to callers.
type Coordinator struct {
	estimator  *SizeEstimator
	streaming  *StreamingExporter
	clientside *ClientSideExporter
	outputDir  string
	newSink    func(dir, name string) Sink
	now        func() time.Time

	mu      sync.Mutex
	nextID  uint64
	session *Session

	events chan Event
}

// Options configures a Coordinator.
type Options struct {
	// Client talks to the backend; nil disables streaming configs.
	Client *api.Client
	// OutputDir is where completed exports land.
	OutputDir string
	// NewSink overrides sink construction (tests).
	NewSink func(dir, name string) Sink
	// EventBuffer sizes the event channel (default 32).
	EventBuffer int
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 32
	}
	newSink := opts.NewSink
	if newSink == nil {
		newSink = NewSink
	}
	return &Coordinator{
		estimator:  NewSizeEstimator(opts.Client),
		streaming:  NewStreamingExporter(opts.Client),
		clientside: NewClientSideExporter(),
		outputDir:  opts.OutputDir,
		newSink:    newSink,
		now:        time.Now,
		events:     make(chan Event, opts.EventBuffer),
	}
}

// Events returns the notification channel. It is owned by the coordinator
// and never closed.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state (Idle when no session exists).
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateIdle
	}
	return c.session.State
}

// Snapshot returns a copy of the current session for rendering. ok is false
// when the coordinator is idle.
func (c *Coordinator) Snapshot() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	s := *c.session
	s.cancel = nil
	return s, true
}

// Initiate starts a new export session for cfg and begins estimation.
// Returns ErrExportActive (a no-op for the running session) unless the
// coordinator is idle.
func (c *Coordinator) Initiate(cfg *Config) (uint64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.session != nil && !c.session.State.Terminal() {
		c.mu.Unlock()
		return 0, ErrExportActive
	}
	c.nextID++
	id := c.nextID
	ctx, cancel := context.WithCancel(context.Background())
	c.session = &Session{
		ID:     id,
		Config: cfg,
		State:  StateEstimating,
		cancel: cancel,
	}
	c.emitLocked(StateEvent{SessionID: id, State: StateEstimating})
	c.mu.Unlock()

	debug.Log("session %d: estimating %s (%s)", id, cfg.DataSource, cfg.Strategy)
	go c.runEstimate(ctx, id, cfg)
	return id, nil
}

func (c *Coordinator) runEstimate(ctx context.Context, id uint64, cfg *Config) {
	est, err := c.estimator.Estimate(ctx, cfg)

	c.deliver(id, func(s *Session) {
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			// Cancelled before confirmation: no side effects to undo.
			c.terminateLocked(s, StateCancelled, "", nil)
		case err != nil:
			c.terminateLocked(s, StateFailed, "", err)
		case est.Count == 0:
			s.Estimate = est
			c.terminateLocked(s, StateEmpty, "", nil)
		default:
			s.Estimate = est
			s.State = StateAwaitingConfirmation
			c.emitLocked(StateEvent{SessionID: id, State: StateAwaitingConfirmation})
			c.emitLocked(EstimateReadyEvent{SessionID: id})
		}
	})
}

// Confirm validates the rank range against the estimate and dispatches the
// matching executor. Out-of-range requests are clamped, not rejected; an
// empty clamped range terminates as StateEmpty without any transfer.
func (c *Coordinator) Confirm(rng RankRange) error {
	c.mu.Lock()
	s := c.session
	if s == nil || s.State != StateAwaitingConfirmation {
		c.mu.Unlock()
		return &ValidationError{Msg: "no export awaiting confirmation"}
	}

	clamped, ok := rng.Clamp(s.Estimate.Count)
	if !ok {
		c.terminateLocked(s, StateEmpty, "", nil)
		c.mu.Unlock()
		return ErrNothingToExport
	}

	s.Range = clamped
	s.State = StateExporting
	id := s.ID
	cfg := s.Config
	est := s.Estimate

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	name := cfg.Filename(c.now())
	sink := c.newSink(c.outputDir, name)

	c.emitLocked(StateEvent{SessionID: id, State: StateExporting})
	c.mu.Unlock()

	debug.Log("session %d: exporting ranks %d-%d to %s", id, clamped.Start, clamped.End, name)
	go c.runExport(ctx, id, cfg, clamped, est, sink)
	return nil
}

func (c *Coordinator) runExport(ctx context.Context, id uint64, cfg *Config, rng RankRange, est model.Estimate, sink Sink) {
	onProgress := func(p Progress) {
		p.SessionID = id
		c.deliver(id, func(s *Session) {
			// Ordering guarantee: byte counts never move backwards.
			if p.BytesDone < s.BytesDone {
				return
			}
			s.BytesDone = p.BytesDone
			s.BytesTotal = p.BytesTotal
			s.RowsDone = p.RowsDone
			s.Approximate = p.Approximate
			c.emitProgressLocked(ProgressEvent{Progress: p})
		})
	}

	var err error
	switch cfg.Strategy {
	case StrategyClientSide:
		err = c.clientside.Run(ctx, cfg, rng, est, sink, onProgress)
	default:
		err = c.streaming.Run(ctx, cfg, rng, est, sink, onProgress)
	}

	if err != nil {
		// Partial output is already discarded by the executor.
		c.deliver(id, func(s *Session) {
			if errors.Is(err, ErrCancelled) {
				c.terminateLocked(s, StateCancelled, "", nil)
			} else {
				c.terminateLocked(s, StateFailed, "", err)
			}
		})
		return
	}

	// The artifact materializes only as the final side effect of completing.
	path, cerr := sink.Commit()
	c.deliver(id, func(s *Session) {
		if cerr != nil {
			c.terminateLocked(s, StateFailed, "", &NetworkError{Err: cerr})
			return
		}
		c.terminateLocked(s, StateCompleted, path, nil)
	})
}

// Cancel aborts whatever is in flight. Idempotent: cancelling an idle
// coordinator or an already-terminal session is a no-op. Before any transfer
// has started the session simply ends (StateCancelled for estimating,
// straight back to Idle from AwaitingConfirmation, which has no side effects
// to undo).
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.State.Terminal() {
		return
	}
	switch s.State {
	case StateAwaitingConfirmation:
		s.abort()
		id := s.ID
		c.session = nil
		c.emitLocked(StateEvent{SessionID: id, State: StateIdle})
	default:
		// Estimating or Exporting: signal the token; the running goroutine
		// reports the terminal state so late events stay ordered.
		s.abort()
	}
}

// Acknowledge discards a terminal session and returns to Idle.
func (c *Coordinator) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.session.State.Terminal() {
		return
	}
	id := c.session.ID
	c.session = nil
	c.emitLocked(StateEvent{SessionID: id, State: StateIdle})
}

// Retry re-runs a failed session's config from the top: a fresh session
// re-enters Estimating. Transfers are never resumed.
func (c *Coordinator) Retry() (uint64, error) {
	c.mu.Lock()
	s := c.session
	if s == nil || s.State != StateFailed {
		c.mu.Unlock()
		return 0, &ValidationError{Msg: "nothing to retry"}
	}
	cfg := s.Config
	c.session = nil
	c.mu.Unlock()

	return c.Initiate(cfg)
}

// deliver runs fn on the session identified by id, dropping the callback
// when the session was superseded or already terminal. This is the stale
// guard: a slow-arriving event from session N can never corrupt session N+1.
func (c *Coordinator) deliver(id uint64, fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.ID != id || s.State.Terminal() {
		debug.Log("dropping stale event for session %d", id)
		return
	}
	fn(s)
}

// terminateLocked moves s to a terminal state and emits the event. Callers
// hold c.mu.
func (c *Coordinator) terminateLocked(s *Session, st State, path string, err error) {
	s.State = st
	s.OutputPath = path
	s.Err = err
	s.abort()
	c.emitLocked(StateEvent{SessionID: s.ID, State: st})
}

// emitLocked sends a must-deliver event. When the buffer is full the oldest
// event is dropped so the newest wins; FIFO order of what remains is
// preserved, so nothing is ever delivered after its session's terminal event.
func (c *Coordinator) emitLocked(ev Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
		}
		select {
		case <-c.events:
		default:
		}
	}
}

// emitProgressLocked sends a coalescable progress event: when the buffer is
// full it is simply dropped, a newer one is always coming.
func (c *Coordinator) emitProgressLocked(ev ProgressEvent) {
	select {
	case c.events <- ev:
	default:
	}
}
