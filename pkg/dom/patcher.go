package dom

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// Stats counts the work done by a Patcher since it was created.
type Stats struct {
	Batches int // Apply calls that ran, queued ones included
	Patches int // Patches applied successfully
	Created int // Live nodes created
	Removed int // Live nodes removed, subtrees counted once
	Moved   int // Live nodes moved
	Focused int // Autofocus requests honored
}

// Patcher applies patch sequences to a live document and owns the NodeMap
// of one mount container.
//
// A Patcher is driven from a single UI loop. An Apply issued while another
// Apply is running, for example from an event callback fired synchronously
// by the host, is queued and runs after the current batch.
type Patcher struct {
	doc       host.Document
	container host.Node
	nodes     *NodeMap
	logger    *slog.Logger
	listen    func(eventType string) error

	replace  []host.Node
	mounted  bool
	applying bool
	queue    []queued
	focus    []*LiveNode
	stats    Stats
}

type queued struct {
	patches []vdom.Patch
	fn      func()
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Patcher) {
		p.logger = logger
	}
}

// WithListenHook sets the function called whenever a listener slot is
// rendered, so a delegated root listener exists for its event type.
func WithListenHook(fn func(eventType string) error) Option {
	return func(p *Patcher) {
		p.listen = fn
	}
}

// WithReplace makes the first successful Mount replace nodes, children of
// the container that were not rendered by the patcher, such as server-side
// placeholder markup. The rendered roots are inserted before them and the
// nodes are removed once the roots are in place.
func WithReplace(nodes ...host.Node) Option {
	return func(p *Patcher) {
		p.replace = append(p.replace, nodes...)
	}
}

// NewPatcher creates a Patcher rendering into container.
func NewPatcher(doc host.Document, container host.Node, opts ...Option) *Patcher {
	p := &Patcher{
		doc:       doc,
		container: container,
		nodes:     newNodeMap(container),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "patcher")
	return p
}

// SetListenHook replaces the listen hook. It exists for wiring a dispatcher
// that needs the patcher's NodeMap before it can be created.
func (p *Patcher) SetListenHook(fn func(eventType string) error) {
	p.listen = fn
}

// Nodes returns the NodeMap of the mount.
func (p *Patcher) Nodes() *NodeMap {
	return p.nodes
}

// Mounted reports whether a tree is mounted.
func (p *Patcher) Mounted() bool {
	return p.mounted
}

// Applying reports whether a batch is being applied right now.
func (p *Patcher) Applying() bool {
	return p.applying
}

// Stats returns a snapshot of the counters.
func (p *Patcher) Stats() Stats {
	return p.stats
}

// Mount renders tree into the container. The container is expected to be
// empty of rendered nodes; mounting twice without Unmount is an error.
// Nodes given to WithReplace are removed by the first Mount that succeeds.
func (p *Patcher) Mount(tree *vdom.VNode) error {
	if p.mounted {
		return errors.New("E005").WithDetail("tree already mounted; call Unmount first")
	}
	p.mounted = true
	if roots := vdom.Roots(tree); len(roots) > 0 {
		if err := p.Apply([]vdom.Patch{{Op: vdom.PatchInsertChildren, Index: 0, Nodes: roots}}); err != nil {
			return err
		}
	}
	return p.dropReplaced()
}

// Replacing reports whether placeholder nodes still wait for a Mount.
func (p *Patcher) Replacing() bool {
	return len(p.replace) > 0
}

func (p *Patcher) dropReplaced() error {
	for len(p.replace) > 0 {
		if err := p.doc.RemoveChild(p.container, p.replace[0]); err != nil {
			return errors.New("E010").WithDetail("removing a replaced node").Wrap(err)
		}
		p.replace = p.replace[1:]
	}
	return nil
}

// Unmount removes every rendered node and resets the NodeMap. Host errors
// are collected; the map is reset regardless.
func (p *Patcher) Unmount() error {
	var result *multierror.Error
	root := p.nodes.Root()
	for i := len(root.children) - 1; i >= 0; i-- {
		c := root.children[i]
		if err := p.doc.RemoveChild(root.Handle, c.Handle); err != nil {
			result = multierror.Append(result, errors.New("E010").At(c.Path(), "RemoveNode").Wrap(err))
		}
	}
	p.nodes.reset()
	p.queue = nil
	p.focus = nil
	p.mounted = false
	return result.ErrorOrNil()
}

// Defer runs fn after the batch being applied, or right away when the
// patcher is idle.
func (p *Patcher) Defer(fn func()) {
	if p.applying {
		p.queue = append(p.queue, queued{fn: fn})
		return
	}
	fn()
}

// Apply applies patches in order. The first failing patch stops the batch:
// earlier patches stay applied and the NodeMap matches what the host holds.
// Batches queued while applying run afterwards; they are skipped once a
// batch has failed since their paths no longer describe the live tree.
func (p *Patcher) Apply(patches []vdom.Patch) error {
	if !p.mounted {
		return errors.New("E003")
	}
	if p.applying {
		p.queue = append(p.queue, queued{patches: patches})
		return nil
	}

	p.applying = true
	var result *multierror.Error
	failed := false
	if err := p.apply(patches); err != nil {
		result = multierror.Append(result, err)
		failed = true
	}
	for len(p.queue) > 0 {
		q := p.queue[0]
		p.queue = p.queue[1:]
		if q.fn != nil {
			q.fn()
			continue
		}
		if failed {
			p.logger.Warn("skipping queued batch after failure", "patches", len(q.patches))
			continue
		}
		if err := p.apply(q.patches); err != nil {
			result = multierror.Append(result, err)
			failed = true
		}
	}
	p.applying = false
	p.flushFocus()

	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

func (p *Patcher) apply(patches []vdom.Patch) error {
	p.stats.Batches++
	for _, patch := range patches {
		if err := p.applyOne(patch); err != nil {
			p.logger.Debug("patch failed", "patch", patch.String(), "error", err)
			return err
		}
		p.stats.Patches++
	}
	return nil
}

func (p *Patcher) applyOne(patch vdom.Patch) error {
	switch patch.Op {
	case vdom.PatchSetText:
		return p.setText(patch)
	case vdom.PatchSetAttribute:
		return p.setAttribute(patch)
	case vdom.PatchRemoveAttribute:
		return p.removeAttribute(patch)
	case vdom.PatchInsertChildren:
		return p.insertChildren(patch)
	case vdom.PatchRemoveNode:
		return p.removeNode(patch)
	case vdom.PatchMoveNode:
		return p.moveNode(patch)
	case vdom.PatchReplaceNode:
		return p.replaceNode(patch)
	}
	return errors.New("E005").At(patch.Path, patch.Op.String())
}

// resolve returns the node at path, or E001.
func (p *Patcher) resolve(path vdom.Path, op vdom.PatchOp) (*LiveNode, error) {
	n, ok := p.nodes.Resolve(path)
	if !ok {
		return nil, errors.New("E001").At(path, op.String())
	}
	return n, nil
}

// resolveChild is resolve for operations that need a rendered node, never
// the container.
func (p *Patcher) resolveChild(path vdom.Path, op vdom.PatchOp) (*LiveNode, error) {
	if len(path) == 0 {
		return nil, errors.New("E002").At(path, op.String()).
			WithDetail("the mount container cannot be the target of " + op.String())
	}
	return p.resolve(path, op)
}

func (p *Patcher) resolveElement(path vdom.Path, op vdom.PatchOp) (*LiveNode, error) {
	n, err := p.resolveChild(path, op)
	if err != nil {
		return nil, err
	}
	if n.Kind != vdom.KindElement {
		return nil, errors.New("E002").At(path, op.String()).
			WithDetailf("%s needs an element, found %s", op, n.Kind)
	}
	return n, nil
}

func hostError(err error, path vdom.Path, op vdom.PatchOp) error {
	return errors.New("E010").At(path, op.String()).Wrap(err)
}

func (p *Patcher) setText(patch vdom.Patch) error {
	n, err := p.resolveChild(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if n.Kind != vdom.KindText && n.Kind != vdom.KindComment {
		return errors.New("E002").At(patch.Path, patch.Op.String()).
			WithDetailf("SetText needs a text or comment node, found %s", n.Kind)
	}
	if err := p.doc.SetText(n.Handle, patch.Text); err != nil {
		return hostError(err, patch.Path, patch.Op)
	}
	return nil
}

func (p *Patcher) setAttribute(patch vdom.Patch) error {
	n, err := p.resolveElement(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if err := p.writeAttr(n, patch.Key, patch.Value); err != nil {
		return p.attrError(err, patch)
	}
	return nil
}

func (p *Patcher) removeAttribute(patch vdom.Patch) error {
	n, err := p.resolveElement(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if n.dropListener(patch.Key) {
		return nil
	}
	if err := p.doc.RemoveAttribute(n.Handle, patch.Key); err != nil {
		return hostError(err, patch.Path, patch.Op)
	}
	return nil
}

func (p *Patcher) attrError(err error, patch vdom.Patch) error {
	if e, ok := err.(*errors.Error); ok {
		return e.At(patch.Path, patch.Op.String())
	}
	return hostError(err, patch.Path, patch.Op)
}

// writeAttr applies one attribute value to a live element. Listener values
// only update the NodeMap; false booleans remove the host attribute.
func (p *Patcher) writeAttr(n *LiveNode, name string, value vdom.Value) error {
	if value.Kind == vdom.ValueListener {
		typ := vdom.EventType(name)
		if typ == "" && value.Listener != nil {
			typ = value.Listener.Event
		}
		if n.Listeners == nil {
			n.Listeners = make(map[string]*vdom.Listener)
		}
		n.Listeners[typ] = value.Listener
		if n.slots == nil {
			n.slots = make(map[string]string)
		}
		n.slots[name] = typ
		if p.listen != nil {
			if err := p.listen(typ); err != nil {
				return errors.New("E011").Wrap(err)
			}
		}
		return nil
	}
	n.dropListener(name)
	if value.Kind == vdom.ValueBool && !value.Bool {
		return p.doc.RemoveAttribute(n.Handle, name)
	}
	if err := p.doc.SetAttribute(n.Handle, name, value.String()); err != nil {
		return err
	}
	if name == "autofocus" && value.Truthy() {
		p.focus = append(p.focus, n)
	}
	return nil
}

func (p *Patcher) insertChildren(patch vdom.Patch) error {
	parent, err := p.resolve(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if parent.Kind != vdom.KindElement {
		return errors.New("E002").At(patch.Path, patch.Op.String()).
			WithDetailf("cannot insert children into a %s node", parent.Kind)
	}
	if patch.Index < 0 || patch.Index > len(parent.children) {
		return errors.New("E001").At(patch.Path, patch.Op.String()).
			WithDetailf("insert index %d outside [0,%d]", patch.Index, len(parent.children))
	}
	at := patch.Index
	for _, v := range vdom.Flatten(patch.Nodes) {
		live, err := p.create(v)
		if err != nil {
			return p.attrError(err, patch)
		}
		if err := p.doc.InsertChild(parent.Handle, live.Handle, at); err != nil {
			return hostError(err, patch.Path, patch.Op)
		}
		p.nodes.attach(parent, at, live)
		at++
	}
	return nil
}

func (p *Patcher) removeNode(patch vdom.Patch) error {
	n, err := p.resolveChild(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if err := p.doc.RemoveChild(n.parent.Handle, n.Handle); err != nil {
		return hostError(err, patch.Path, patch.Op)
	}
	p.nodes.detach(n)
	p.nodes.purge(n)
	p.stats.Removed++
	return nil
}

func (p *Patcher) moveNode(patch vdom.Patch) error {
	n, err := p.resolveChild(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	destPath, at, ok := patch.To.Parent()
	if !ok {
		return errors.New("E005").At(patch.Path, patch.Op.String()).
			WithDetail("MoveNode needs a destination below the container")
	}

	from := n.parent
	index := p.nodes.detach(n)
	dest, found := p.nodes.Resolve(destPath)
	if !found || dest.Kind != vdom.KindElement || at < 0 || at > len(dest.children) || within(dest, n) {
		p.nodes.relink(from, index, n)
		return errors.New("E001").At(patch.To, patch.Op.String()).
			WithDetail("move destination does not exist")
	}
	if err := p.doc.InsertChild(dest.Handle, n.Handle, at); err != nil {
		p.nodes.relink(from, index, n)
		return hostError(err, patch.Path, patch.Op)
	}
	p.nodes.relink(dest, at, n)
	p.stats.Moved++
	return nil
}

// within reports whether node lies in the subtree of root.
func within(node, root *LiveNode) bool {
	for n := node; n != nil; n = n.parent {
		if n == root {
			return true
		}
	}
	return false
}

func (p *Patcher) replaceNode(patch vdom.Patch) error {
	old, err := p.resolveChild(patch.Path, patch.Op)
	if err != nil {
		return err
	}
	if patch.Node == nil || patch.Node.Kind == vdom.KindFragment {
		return errors.New("E005").At(patch.Path, patch.Op.String()).
			WithDetail("ReplaceNode needs a single non-fragment node")
	}
	parent := old.parent
	index := parent.indexOf(old)

	live, err := p.create(patch.Node)
	if err != nil {
		return p.attrError(err, patch)
	}
	if err := p.doc.InsertChild(parent.Handle, live.Handle, index); err != nil {
		return hostError(err, patch.Path, patch.Op)
	}
	p.nodes.attach(parent, index, live)
	if err := p.doc.RemoveChild(parent.Handle, old.Handle); err != nil {
		return hostError(err, patch.Path, patch.Op)
	}
	p.nodes.detach(old)
	p.nodes.purge(old)
	p.stats.Removed++
	return nil
}

// create builds the host subtree for v. The result is not attached and not
// registered in the NodeMap yet.
func (p *Patcher) create(v *vdom.VNode) (*LiveNode, error) {
	var (
		h   host.Node
		err error
	)
	switch v.Kind {
	case vdom.KindText:
		h, err = p.doc.CreateTextNode(v.Text)
	case vdom.KindComment:
		h, err = p.doc.CreateComment(v.Text)
	case vdom.KindElement:
		h, err = p.doc.CreateElement(v.Namespace, v.Tag)
	default:
		return nil, errors.New("E005").WithDetailf("cannot create a %s node", v.Kind)
	}
	if err != nil {
		return nil, err
	}
	p.stats.Created++
	live := &LiveNode{Handle: h, Kind: v.Kind, Tag: v.Tag, Namespace: v.Namespace}
	if v.Kind != vdom.KindElement {
		return live, nil
	}

	for _, a := range v.Attrs {
		if err := p.writeAttr(live, a.Key, a.Value); err != nil {
			return nil, err
		}
	}
	for i, c := range vdom.Flatten(v.Children) {
		child, err := p.create(c)
		if err != nil {
			return nil, err
		}
		if err := p.doc.InsertChild(h, child.Handle, i); err != nil {
			return nil, err
		}
		live.children = append(live.children, child)
		child.parent = live
	}
	return live, nil
}

// flushFocus focuses the last element that asked for it and is still
// rendered.
func (p *Patcher) flushFocus() {
	pending := p.focus
	p.focus = nil
	f, ok := p.doc.(host.Focuser)
	if !ok {
		return
	}
	for i := len(pending) - 1; i >= 0; i-- {
		n := pending[i]
		if _, live := p.nodes.Lookup(n.Handle); !live {
			continue
		}
		if err := f.Focus(n.Handle); err != nil {
			p.logger.Warn("autofocus failed", "path", n.Path().String(), "error", err)
		} else {
			p.stats.Focused++
		}
		return
	}
}
