// Package sched decides when render cycles run.
//
// A Scheduler moves between four states:
//
//	Idle ──RequestRender──▶ Pending ──frame──▶ Rendering ──▶ Idle
//
// Any number of requests made while Pending are served by the one armed
// frame. A request made while Rendering schedules exactly one follow-up
// cycle after the current one; cycles never interleave. RenderNow runs a
// cycle synchronously and Close disarms everything.
//
// Frames come from a FrameSource: ManualFrames for headless use and tests,
// TickerFrames for a fixed frame rate. TickerFrames delivers its callbacks
// on a Loop, the single goroutine that owns a mount.
package sched
