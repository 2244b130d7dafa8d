package sched

import (
	"sync"
	"time"
)

// FrameHandle identifies a requested frame.
type FrameHandle uint64

// FrameSource delivers frame callbacks, the moments at which pending
// renders run.
type FrameSource interface {
	// RequestFrame schedules cb for the next frame.
	RequestFrame(cb func()) FrameHandle

	// Cancel drops a requested frame that has not fired yet.
	Cancel(h FrameHandle)
}

type frame struct {
	handle FrameHandle
	cb     func()
}

func dropFrame(list []frame, h FrameHandle) []frame {
	for i, f := range list {
		if f.handle == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// ManualFrames is a FrameSource that fires only when told to. It drives
// headless rendering and tests.
type ManualFrames struct {
	mu    sync.Mutex
	next  FrameHandle
	queue []frame
}

// NewManualFrames returns an empty ManualFrames.
func NewManualFrames() *ManualFrames {
	return &ManualFrames{}
}

// RequestFrame implements FrameSource.
func (m *ManualFrames) RequestFrame(cb func()) FrameHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.queue = append(m.queue, frame{handle: m.next, cb: cb})
	return m.next
}

// Cancel implements FrameSource.
func (m *ManualFrames) Cancel(h FrameHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = dropFrame(m.queue, h)
}

// Pending returns the number of frames waiting to fire.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Fire runs the callbacks requested so far and returns how many ran.
// Frames requested by those callbacks wait for the next Fire.
func (m *ManualFrames) Fire() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, f := range batch {
		f.cb()
	}
	return len(batch)
}

// TickerFrames fires frames on a fixed interval and runs their callbacks on
// a Loop. The timer only runs while frames are requested.
type TickerFrames struct {
	loop     *Loop
	interval time.Duration
	start    time.Time

	mu     sync.Mutex
	next   FrameHandle
	queue  []frame
	timer  *time.Timer
	closed bool
}

// NewTickerFrames returns a TickerFrames firing every interval onto loop.
func NewTickerFrames(loop *Loop, interval time.Duration) *TickerFrames {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerFrames{loop: loop, interval: interval, start: time.Now()}
}

// Interval returns the frame interval.
func (t *TickerFrames) Interval() time.Duration {
	return t.interval
}

// RequestFrame implements FrameSource.
func (t *TickerFrames) RequestFrame(cb func()) FrameHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	if t.closed {
		return t.next
	}
	t.queue = append(t.queue, frame{handle: t.next, cb: cb})
	if t.timer == nil {
		// Align to the frame grid so bursts of requests share a boundary.
		delay := t.interval - time.Since(t.start)%t.interval
		t.timer = time.AfterFunc(delay, t.tick)
	}
	return t.next
}

// Cancel implements FrameSource.
func (t *TickerFrames) Cancel(h FrameHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = dropFrame(t.queue, h)
	if len(t.queue) == 0 && t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *TickerFrames) tick() {
	t.mu.Lock()
	batch := t.queue
	t.queue = nil
	t.timer = nil
	closed := t.closed
	t.mu.Unlock()
	if closed || len(batch) == 0 {
		return
	}
	t.loop.Post(func() {
		for _, f := range batch {
			f.cb()
		}
	})
}

// Close stops the timer and drops requested frames.
func (t *TickerFrames) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.queue = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
