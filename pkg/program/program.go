package program

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/dom"
	"github.com/vango-dev/domsync/pkg/event"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/sched"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// DefaultSlowCycle is the cycle duration above which a cycle is logged as
// slow.
const DefaultSlowCycle = 16 * time.Millisecond

const tracerName = "domsync"

// Application produces the tree to render.
type Application interface {
	Render() *vdom.VNode
}

// AppFunc adapts a function to Application.
type AppFunc func() *vdom.VNode

// Render implements Application.
func (f AppFunc) Render() *vdom.VNode { return f() }

// Initializer is implemented by applications that need to run once the
// first tree is mounted, for example to start loading data. Init runs on
// the UI loop; an application changing state there requests a render the
// usual way.
type Initializer interface {
	Init()
}

// Styler is implemented by applications carrying a style sheet. It is
// injected into the style target after Init, once per application type.
type Styler interface {
	Style() string
}

// Measurer is implemented by applications that want the measurements of
// every cycle that changed the live document.
type Measurer interface {
	Measurements(m Measurements)
}

// Measurements describes one render cycle.
type Measurements struct {
	Remount bool          // The cycle mounted the whole tree
	Nodes   int           // Nodes of the rendered tree
	Patches int           // Patches applied
	Render  time.Duration // Producing the tree
	Diff    time.Duration // Diffing it against the previous one
	Patch   time.Duration // Applying and flushing
	Total   time.Duration
}

// Stats is a snapshot of a Program's activity.
type Stats struct {
	Cycles    uint64        // Render cycles run, failed ones included
	Failures  uint64        // Cycles that returned an error
	Remounts  uint64        // Full remounts after a failure
	Requests  uint64        // RequestRender calls
	Coalesced uint64        // Requests absorbed by a pending cycle
	Events    uint64        // Native events dispatched
	Patches   int           // Patches applied
	Nodes     int           // Live nodes after the last good cycle
	LastCycle time.Duration // Duration of the last cycle
}

// Program is one mount: an Application rendered into a container of a
// host document, kept in sync by a Patcher, fed events by a Dispatcher
// and paced by a Scheduler.
//
// A Program is not safe for concurrent use. Drive it from the loop that
// owns its document; sched.Loop provides one.
type Program struct {
	doc       host.Document
	container host.Node
	app       Application

	logger  *slog.Logger
	frames  sched.FrameSource
	sync    bool
	slow    time.Duration
	tracer  trace.Tracer
	metrics *Metrics
	onError func(error)
	styles  *Styles
	replace []host.Node

	patcher    *dom.Patcher
	dispatcher *event.Dispatcher
	scheduler  *sched.Scheduler

	ctx        context.Context
	current    *vdom.VNode
	pending    *vdom.VNode
	hasPending bool
	started    bool
	closed     bool
	desynced   bool
	mountedApp bool
	stats      Stats
}

// Option configures a Program.
type Option func(*Program)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) {
		p.logger = logger
	}
}

// WithFrameSource sets where frames come from. The default is a
// sched.ManualFrames, so nothing renders until its frames are fired.
func WithFrameSource(frames sched.FrameSource) Option {
	return func(p *Program) {
		p.frames = frames
	}
}

// WithSync makes RequestRender render immediately.
func WithSync(sync bool) Option {
	return func(p *Program) {
		p.sync = sync
	}
}

// WithSlowCycle sets the slow-cycle warning threshold.
func WithSlowCycle(d time.Duration) Option {
	return func(p *Program) {
		p.slow = d
	}
}

// WithTracer sets the tracer. The default comes from the global
// OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Program) {
		p.tracer = tracer
	}
}

// WithMetrics records cycles into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Program) {
		p.metrics = m
	}
}

// WithOnError sets the function receiving errors of frame-driven cycles.
func WithOnError(fn func(error)) Option {
	return func(p *Program) {
		p.onError = fn
	}
}

// WithStyles injects the style sheets of Styler applications through s.
// Programs rendering into the same document share one Styles.
func WithStyles(s *Styles) Option {
	return func(p *Program) {
		p.styles = s
	}
}

// WithReplace makes the first mount replace nodes of the container, such as
// placeholder markup, instead of rendering next to them.
func WithReplace(nodes ...host.Node) Option {
	return func(p *Program) {
		p.replace = append(p.replace, nodes...)
	}
}

// New creates a Program. Nothing is rendered until Start.
func New(doc host.Document, container host.Node, app Application, opts ...Option) *Program {
	p := &Program{
		doc:       doc,
		container: container,
		app:       app,
		logger:    slog.Default(),
		slow:      DefaultSlowCycle,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.frames == nil {
		p.frames = sched.NewManualFrames()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}

	p.patcher = dom.NewPatcher(doc, container, dom.WithLogger(p.logger), dom.WithReplace(p.replace...))
	p.dispatcher = event.NewDispatcher(doc, container, p.patcher.Nodes(),
		event.WithLogger(p.logger),
		event.WithDeferrer(p.patcher),
		event.WithDispatchHook(p.dispatched),
	)
	p.patcher.SetListenHook(p.dispatcher.Listen)
	p.scheduler = sched.New(p.frames, p.cycle,
		sched.WithLogger(p.logger),
		sched.WithSync(p.sync),
		sched.WithOnError(p.report),
	)
	p.logger = p.logger.With("component", "program")
	return p
}

// Start mounts the first tree.
func (p *Program) Start() error {
	if p.closed {
		return errors.New("E004")
	}
	if p.started {
		return errors.New("E005").WithDetail("program already started")
	}
	p.started = true
	return p.scheduler.RenderNow()
}

// RequestRender schedules a render cycle.
func (p *Program) RequestRender() {
	before := p.scheduler.Stats()
	p.scheduler.RequestRender()
	after := p.scheduler.Stats()
	if p.metrics != nil {
		p.metrics.requests.Add(float64(after.Requests - before.Requests))
		p.metrics.coalesced.Add(float64(after.Coalesced - before.Coalesced))
	}
}

// Update supplies the tree for the next cycle and requests it. When several
// trees arrive before the cycle runs, the last one is rendered.
func (p *Program) Update(tree *vdom.VNode) {
	if p.closed {
		return
	}
	p.pending = tree
	p.hasPending = true
	p.RequestRender()
}

// RenderNow runs a cycle synchronously.
func (p *Program) RenderNow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.started && !p.closed {
		return errors.New("E003").WithDetail("call Start before rendering")
	}
	p.ctx = ctx
	defer func() { p.ctx = context.Background() }()
	return p.scheduler.RenderNow()
}

// Close stops scheduling, removes the delegated listeners and unmounts the
// tree.
func (p *Program) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.scheduler.Close()
	var result *multierror.Error
	if err := p.dispatcher.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := p.patcher.Unmount(); err != nil {
		result = multierror.Append(result, err)
	}
	p.current = nil
	p.pending = nil
	return result.ErrorOrNil()
}

// Tree returns the last successfully rendered tree.
func (p *Program) Tree() *vdom.VNode {
	return p.current
}

// Nodes returns the NodeMap of the mount.
func (p *Program) Nodes() *dom.NodeMap {
	return p.patcher.Nodes()
}

// State returns the scheduler state.
func (p *Program) State() sched.State {
	return p.scheduler.State()
}

// Stats returns a snapshot of the counters.
func (p *Program) Stats() Stats {
	s := p.stats
	ss := p.scheduler.Stats()
	s.Cycles = ss.Cycles
	s.Failures = ss.Failures
	s.Requests = ss.Requests
	s.Coalesced = ss.Coalesced
	s.Patches = p.patcher.Stats().Patches
	return s
}

func (p *Program) next() *vdom.VNode {
	if p.hasPending {
		tree := p.pending
		p.pending = nil
		p.hasPending = false
		return tree
	}
	if p.app == nil {
		return p.current
	}
	return p.app.Render()
}

// cycle renders, diffs, patches and flushes once. A failed cycle leaves
// the live tree in an unknown state, so the next one remounts.
func (p *Program) cycle() error {
	remount := p.desynced || !p.patcher.Mounted()
	_, span := p.tracer.Start(p.ctx, "domsync.render",
		trace.WithAttributes(
			attribute.Bool("domsync.remount", remount),
			attribute.Bool("domsync.replace", p.patcher.Replacing())))
	defer span.End()
	applied := p.patcher.Stats().Patches

	start := time.Now()
	next := p.next()
	renderDur := time.Since(start)

	var (
		patches []vdom.Patch
		diffDur time.Duration
		err     error
	)
	patchStart := time.Now()
	switch {
	case !p.patcher.Mounted():
		err = p.patcher.Mount(next)
	case p.desynced:
		if uerr := p.patcher.Unmount(); uerr != nil {
			p.logger.Warn("unmount before remount failed", "error", uerr)
		}
		p.stats.Remounts++
		if p.metrics != nil {
			p.metrics.remounts.Inc()
		}
		err = p.patcher.Mount(next)
	default:
		patches = vdom.Diff(p.current, next)
		diffDur = time.Since(patchStart)
		patchStart = time.Now()
		err = p.patcher.Apply(patches)
	}
	if err == nil {
		err = p.flush()
	}
	patchDur := time.Since(patchStart)
	total := time.Since(start)
	p.stats.LastCycle = total

	if p.metrics != nil {
		p.metrics.cycleDuration.Observe(total.Seconds())
		for _, patch := range patches {
			p.metrics.patches.WithLabelValues(patch.Op.String()).Inc()
		}
	}
	span.SetAttributes(attribute.Int("domsync.patches", len(patches)))

	if err != nil {
		p.desynced = true
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if p.metrics != nil {
			p.metrics.cycles.WithLabelValues("error").Inc()
		}
		return err
	}

	p.desynced = false
	p.current = next
	p.stats.Nodes = p.patcher.Nodes().Len()
	span.SetStatus(codes.Ok, "")
	if p.metrics != nil {
		p.metrics.cycles.WithLabelValues("ok").Inc()
	}
	if p.slow > 0 && total > p.slow {
		p.logger.Warn("slow render cycle",
			"duration", total,
			"render", renderDur,
			"diff", diffDur,
			"patch", patchDur,
			"patches", len(patches),
			"nodes", p.stats.Nodes)
	}
	if m, ok := p.app.(Measurer); ok {
		if n := p.patcher.Stats().Patches - applied; n > 0 {
			m.Measurements(Measurements{
				Remount: remount,
				Nodes:   vdom.NodeCount(next),
				Patches: n,
				Render:  renderDur,
				Diff:    diffDur,
				Patch:   patchDur,
				Total:   total,
			})
		}
	}
	if !p.mountedApp {
		p.mountedApp = true
		return p.afterMount()
	}
	return nil
}

// afterMount runs once, after the first cycle that succeeded: the
// application's Init, then its style sheet.
func (p *Program) afterMount() error {
	if p.app == nil {
		return nil
	}
	if in, ok := p.app.(Initializer); ok {
		in.Init()
	}
	st, ok := p.app.(Styler)
	if !ok {
		return nil
	}
	if p.styles == nil {
		p.logger.Debug("style sheet skipped, no style target")
		return nil
	}
	injected, err := p.styles.inject(p.doc, p.app, st.Style())
	if err != nil {
		return err
	}
	if injected {
		return p.flush()
	}
	return nil
}

func (p *Program) flush() error {
	f, ok := p.doc.(host.Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return errors.New("E010").WithDetail("flushing host mutations").Wrap(err)
	}
	return nil
}

func (p *Program) report(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}

func (p *Program) dispatched(eventType string, invoked int) {
	p.stats.Events++
	if p.metrics != nil {
		p.metrics.events.WithLabelValues(eventType).Inc()
	}
}
