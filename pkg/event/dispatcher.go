package event

import (
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/dom"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// Deferrer postpones work until the patch batch being applied completes.
// *dom.Patcher implements it.
type Deferrer interface {
	Applying() bool
	Defer(fn func())
}

// Dispatcher routes native events from delegated container listeners to
// the callbacks of the virtual nodes rendered at their targets.
//
// Like the Patcher it belongs to a single UI loop; native events must be
// delivered on that loop.
type Dispatcher struct {
	doc        host.Document
	container  host.Node
	nodes      *dom.NodeMap
	logger     *slog.Logger
	deferrer   Deferrer
	onDispatch func(eventType string, invoked int)

	types  map[string]bool
	order  []string
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDeferrer makes native events that arrive while a batch is being
// applied wait until the batch is done.
func WithDeferrer(deferrer Deferrer) Option {
	return func(d *Dispatcher) {
		d.deferrer = deferrer
	}
}

// WithDispatchHook sets a function called after every dispatch with the
// number of callbacks invoked.
func WithDispatchHook(fn func(eventType string, invoked int)) Option {
	return func(d *Dispatcher) {
		d.onDispatch = fn
	}
}

// NewDispatcher creates a Dispatcher for the nodes rendered under container.
func NewDispatcher(doc host.Document, container host.Node, nodes *dom.NodeMap, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		doc:       doc,
		container: container,
		nodes:     nodes,
		logger:    slog.Default(),
		types:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d
}

// Listen ensures one native listener for eventType exists on the container.
// Calling it again for the same type does nothing.
func (d *Dispatcher) Listen(eventType string) error {
	eventType = strings.ToLower(eventType)
	if d.closed {
		return errors.New("E011").WithDetailf("dispatcher closed, cannot listen for %q", eventType)
	}
	if d.types[eventType] {
		return nil
	}
	if err := d.doc.AddEventListener(d.container, eventType, d.handleNative); err != nil {
		return errors.New("E011").WithDetailf("event type %q", eventType).Wrap(err)
	}
	d.types[eventType] = true
	d.order = append(d.order, eventType)
	d.logger.Debug("listening", "type", eventType)
	return nil
}

// Types returns the event types with a native listener, sorted.
func (d *Dispatcher) Types() []string {
	out := append([]string(nil), d.order...)
	sort.Strings(out)
	return out
}

func (d *Dispatcher) handleNative(ev host.Event) {
	if d.closed {
		return
	}
	if d.deferrer != nil && d.deferrer.Applying() {
		d.deferrer.Defer(func() { d.Dispatch(ev) })
		return
	}
	d.Dispatch(ev)
}

type route struct {
	listener *vdom.Listener
	path     vdom.Path
}

// Dispatch delivers ev to the listeners of its target and the target's
// ancestors, nearest first, until one stops propagation. It returns the
// number of callbacks invoked. Targets that are not rendered nodes, such as
// nodes removed by an earlier patch, are ignored.
func (d *Dispatcher) Dispatch(ev host.Event) int {
	eventType := strings.ToLower(ev.Type)
	target, ok := d.nodes.Lookup(ev.Target)
	if !ok {
		d.logger.Debug("event target not rendered", "type", eventType)
		d.dispatched(eventType, 0)
		return 0
	}

	// The chain is captured up front: a callback may render synchronously
	// and reshape the live tree under us.
	var chain []route
	for n := target; n != nil; n = n.Parent() {
		if l := n.Listeners[eventType]; l != nil && l.Handler != nil {
			chain = append(chain, route{listener: l, path: n.Path()})
		}
	}

	e := &vdom.Event{
		Type:    eventType,
		Value:   ev.Value,
		Key:     ev.Key,
		Checked: ev.Checked,
		Detail:  ev.Detail,
		Target:  target.Path(),
	}
	invoked := 0
	for _, r := range chain {
		e.Path = r.path
		d.safeInvoke(r.listener, e)
		invoked++
		if e.Stopped() {
			break
		}
	}
	d.dispatched(eventType, invoked)
	return invoked
}

func (d *Dispatcher) dispatched(eventType string, invoked int) {
	if d.onDispatch != nil {
		d.onDispatch(eventType, invoked)
	}
}

// safeInvoke runs a callback with panic recovery.
func (d *Dispatcher) safeInvoke(l *vdom.Listener, e *vdom.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				"panic", r,
				"type", e.Type,
				"path", e.Path.String(),
				"stack", string(debug.Stack()))
		}
	}()
	l.Handler(e)
}

// Close removes every native listener. Events delivered afterwards are
// dropped.
func (d *Dispatcher) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var result *multierror.Error
	for _, t := range d.order {
		if err := d.doc.RemoveEventListener(d.container, t); err != nil {
			result = multierror.Append(result, errors.New("E010").WithDetailf("removing %q listener", t).Wrap(err))
		}
	}
	d.types = make(map[string]bool)
	d.order = nil
	return result.ErrorOrNil()
}
