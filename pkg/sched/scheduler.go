package sched

import (
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/domsync/internal/errors"
)

// State is the lifecycle state of a Scheduler.
type State uint8

const (
	Idle      State = iota // No render requested
	Pending                // A frame is armed
	Rendering              // A cycle is running
	Closed                 // Torn down; requests are ignored
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Pending:
		return "Pending"
	case Rendering:
		return "Rendering"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Stats counts scheduler activity.
type Stats struct {
	Requests  uint64 // RequestRender calls
	Coalesced uint64 // Requests absorbed by an already pending cycle
	Cycles    uint64 // Render cycles run
	Failures  uint64 // Cycles whose render returned an error
}

// Scheduler batches render requests into at most one render cycle per
// frame.
//
// A Scheduler is not safe for concurrent use. All calls, including the
// frame callbacks it arms, must happen on the same UI loop.
type Scheduler struct {
	frames  FrameSource
	render  func() error
	logger  *slog.Logger
	onError func(error)
	sync    bool

	state    State
	handle   FrameHandle
	armed    bool
	gen      uint64
	followUp bool
	stats    Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSync makes RequestRender render immediately instead of waiting for a
// frame.
func WithSync(sync bool) Option {
	return func(s *Scheduler) {
		s.sync = sync
	}
}

// WithOnError sets the function receiving errors of frame-driven cycles.
func WithOnError(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// New creates a Scheduler that runs render on frames from frames.
func New(frames FrameSource, render func() error, opts ...Option) *Scheduler {
	s := &Scheduler{
		frames: frames,
		render: render,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// RequestRender asks for a render cycle. Requests made while a cycle is
// pending are coalesced into it; requests made during a cycle schedule one
// follow-up cycle after it.
func (s *Scheduler) RequestRender() {
	if s.state == Closed {
		return
	}
	s.stats.Requests++
	switch s.state {
	case Pending:
		s.stats.Coalesced++
	case Rendering:
		if s.followUp {
			s.stats.Coalesced++
		}
		s.followUp = true
	case Idle:
		if s.sync {
			if err := s.cycle(); err != nil {
				s.report(err)
			}
			return
		}
		s.arm()
	}
}

// RenderNow runs a cycle right away, replacing any armed frame. Called from
// inside a cycle it only schedules a follow-up.
func (s *Scheduler) RenderNow() error {
	switch s.state {
	case Closed:
		return errors.New("E004")
	case Rendering:
		s.followUp = true
		return nil
	case Pending:
		s.disarm()
	}
	return s.cycle()
}

// Close cancels the armed frame. Frame callbacks that still fire afterwards
// do nothing.
func (s *Scheduler) Close() {
	if s.state == Closed {
		return
	}
	s.disarm()
	s.followUp = false
	s.state = Closed
}

func (s *Scheduler) arm() {
	s.state = Pending
	s.gen++
	gen := s.gen
	s.handle = s.frames.RequestFrame(func() { s.frame(gen) })
	s.armed = true
}

func (s *Scheduler) disarm() {
	if s.armed {
		s.frames.Cancel(s.handle)
		s.armed = false
	}
	s.gen++
	if s.state == Pending {
		s.state = Idle
	}
}

func (s *Scheduler) frame(gen uint64) {
	if gen != s.gen || s.state != Pending {
		return
	}
	s.armed = false
	if err := s.cycle(); err != nil {
		s.report(err)
	}
}

func (s *Scheduler) cycle() error {
	s.state = Rendering
	s.followUp = false
	err := s.safeRender()
	s.stats.Cycles++
	if err != nil {
		s.stats.Failures++
	}
	if s.state == Closed {
		return err
	}
	s.state = Idle
	if s.followUp {
		s.followUp = false
		s.arm()
	}
	return err
}

func (s *Scheduler) safeRender() (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("render panic",
				"panic", r,
				"stack", string(debug.Stack()))
			err = errors.New("E006").WithDetailf("%v", r)
		}
	}()
	return s.render()
}

func (s *Scheduler) report(err error) {
	s.logger.Error("render cycle failed", "error", err)
	if s.onError != nil {
		s.onError(err)
	}
}
