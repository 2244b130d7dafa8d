package remote

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/protocol"
)

// SendFunc delivers one frame to the client.
type SendFunc func(f *protocol.Frame) error

type nodeKind uint8

const (
	elementNode nodeKind = iota
	textNode
	commentNode
)

// node is the server-side shadow of a client node. Only the structure is
// kept; attribute and text values live on the client.
type node struct {
	id       protocol.NodeID
	kind     nodeKind
	parent   *node
	children []*node
}

type listenerKey struct {
	id        protocol.NodeID
	eventType string
}

// Document is a host.Document whose nodes live in a remote client. Handles
// are protocol.NodeID values; RootID is the client's mount container and
// HeadID its <head>.
//
// Mutations are recorded as host ops and sent as a single ops frame on
// Flush. Listeners stay on the server: the client forwards events and
// Deliver bubbles them through the shadow tree.
//
// A Document is not safe for concurrent use; it belongs to the UI loop of
// its session.
type Document struct {
	send   SendFunc
	logger *slog.Logger

	root      *node
	nodes     map[protocol.NodeID]*node
	nextID    protocol.NodeID
	listeners map[listenerKey]host.Listener
	ops       []protocol.HostOp
	detached  []*node
	seq       uint64
	broken    error
}

// NewDocument creates a Document writing its frames through send.
func NewDocument(send SendFunc, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	root := &node{id: protocol.RootID, kind: elementNode}
	head := &node{id: protocol.HeadID, kind: elementNode}
	return &Document{
		send:   send,
		logger: logger.With("component", "remote-document"),
		root:   root,
		nodes: map[protocol.NodeID]*node{
			protocol.RootID: root,
			protocol.HeadID: head,
		},
		nextID:    protocol.HeadID,
		listeners: make(map[listenerKey]host.Listener),
	}
}

// Container returns the handle of the client's mount container.
func (d *Document) Container() host.Node {
	return protocol.RootID
}

// Head returns the handle of the client's <head>.
func (d *Document) Head() host.Node {
	return protocol.HeadID
}

// Len returns the number of nodes the client holds, the container and the
// head excluded.
func (d *Document) Len() int {
	return len(d.nodes) - 2
}

// Pending returns the number of ops waiting for Flush.
func (d *Document) Pending() int {
	return len(d.ops)
}

// Seq returns the sequence number of the last ops frame sent.
func (d *Document) Seq() uint64 {
	return d.seq
}

func (d *Document) record(op protocol.HostOp) {
	d.ops = append(d.ops, op)
}

func (d *Document) lookup(h host.Node) (*node, error) {
	id, ok := h.(protocol.NodeID)
	if !ok {
		return nil, fmt.Errorf("remote: foreign node handle %T", h)
	}
	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("remote: node #%d released", id)
	}
	return n, nil
}

func (d *Document) element(h host.Node) (*node, error) {
	n, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	if n.kind != elementNode {
		return nil, fmt.Errorf("remote: node #%d is not an element", n.id)
	}
	return n, nil
}

func (d *Document) create(kind nodeKind) (*node, error) {
	if d.broken != nil {
		return nil, d.broken
	}
	d.nextID++
	n := &node{id: d.nextID, kind: kind}
	d.nodes[n.id] = n
	return n, nil
}

// CreateElement implements host.Document.
func (d *Document) CreateElement(namespace, tag string) (host.Node, error) {
	if tag == "" {
		return nil, fmt.Errorf("remote: empty tag name")
	}
	n, err := d.create(elementNode)
	if err != nil {
		return nil, err
	}
	d.record(protocol.HostOp{Op: protocol.OpCreateElement, Node: n.id, Namespace: namespace, Name: tag})
	return n.id, nil
}

// CreateTextNode implements host.Document.
func (d *Document) CreateTextNode(text string) (host.Node, error) {
	n, err := d.create(textNode)
	if err != nil {
		return nil, err
	}
	d.record(protocol.HostOp{Op: protocol.OpCreateText, Node: n.id, Value: text})
	return n.id, nil
}

// CreateComment implements host.Document.
func (d *Document) CreateComment(text string) (host.Node, error) {
	n, err := d.create(commentNode)
	if err != nil {
		return nil, err
	}
	d.record(protocol.HostOp{Op: protocol.OpCreateComment, Node: n.id, Value: text})
	return n.id, nil
}

// SetText implements host.Document.
func (d *Document) SetText(h host.Node, text string) error {
	n, err := d.lookup(h)
	if err != nil {
		return err
	}
	if n.kind == elementNode {
		return fmt.Errorf("remote: SetText on element #%d", n.id)
	}
	d.record(protocol.HostOp{Op: protocol.OpSetText, Node: n.id, Value: text})
	return nil
}

// SetAttribute implements host.Document.
func (d *Document) SetAttribute(h host.Node, name, value string) error {
	n, err := d.element(h)
	if err != nil {
		return err
	}
	d.record(protocol.HostOp{Op: protocol.OpSetAttribute, Node: n.id, Name: name, Value: value})
	return nil
}

// RemoveAttribute implements host.Document.
func (d *Document) RemoveAttribute(h host.Node, name string) error {
	n, err := d.element(h)
	if err != nil {
		return err
	}
	d.record(protocol.HostOp{Op: protocol.OpRemoveAttribute, Node: n.id, Name: name})
	return nil
}

// InsertChild implements host.Document. Inserting an attached node moves it.
func (d *Document) InsertChild(ph, ch host.Node, index int) error {
	parent, err := d.element(ph)
	if err != nil {
		return err
	}
	child, err := d.lookup(ch)
	if err != nil {
		return err
	}
	if child == d.root {
		return fmt.Errorf("remote: cannot insert the container")
	}
	if child.id == protocol.HeadID {
		return fmt.Errorf("remote: cannot insert the head")
	}
	for p := parent; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("remote: cannot insert #%d into its own subtree", child.id)
		}
	}
	limit := len(parent.children)
	if child.parent == parent {
		limit--
	}
	if index < 0 || index > limit {
		return fmt.Errorf("remote: index %d out of range [0,%d]", index, limit)
	}
	if child.parent != nil {
		child.parent.children = without(child.parent.children, child)
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[index+1:], parent.children[index:])
	parent.children[index] = child
	child.parent = parent
	d.record(protocol.HostOp{Op: protocol.OpInsertChild, Node: child.id, Parent: parent.id, Index: index})
	return nil
}

// RemoveChild implements host.Document. The removed subtree is released
// on the next Flush unless it is inserted again before.
func (d *Document) RemoveChild(ph, ch host.Node) error {
	parent, err := d.element(ph)
	if err != nil {
		return err
	}
	child, err := d.lookup(ch)
	if err != nil {
		return err
	}
	if child.parent != parent {
		return fmt.Errorf("remote: #%d is not a child of #%d", child.id, parent.id)
	}
	parent.children = without(parent.children, child)
	child.parent = nil
	d.detached = append(d.detached, child)
	d.record(protocol.HostOp{Op: protocol.OpRemoveChild, Node: child.id, Parent: parent.id})
	return nil
}

func without(list []*node, n *node) []*node {
	for i, c := range list {
		if c == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// AddEventListener implements host.Document. The client is asked to
// forward events of the type fired at or below target.
func (d *Document) AddEventListener(target host.Node, eventType string, fn host.Listener) error {
	n, err := d.lookup(target)
	if err != nil {
		return err
	}
	key := listenerKey{n.id, eventType}
	if _, ok := d.listeners[key]; !ok {
		d.record(protocol.HostOp{Op: protocol.OpListen, Node: n.id, Name: eventType})
	}
	d.listeners[key] = fn
	return nil
}

// RemoveEventListener implements host.Document.
func (d *Document) RemoveEventListener(target host.Node, eventType string) error {
	n, err := d.lookup(target)
	if err != nil {
		return err
	}
	key := listenerKey{n.id, eventType}
	if _, ok := d.listeners[key]; !ok {
		return nil
	}
	delete(d.listeners, key)
	d.record(protocol.HostOp{Op: protocol.OpUnlisten, Node: n.id, Name: eventType})
	return nil
}

// Focus implements host.Focuser.
func (d *Document) Focus(h host.Node) error {
	n, err := d.element(h)
	if err != nil {
		return err
	}
	d.record(protocol.HostOp{Op: protocol.OpFocus, Node: n.id})
	return nil
}

// Flush implements host.Flusher. Subtrees removed and not reinserted since
// the last flush are released, then every recorded op goes out as one ops
// frame. Nothing is sent when no op was recorded.
//
// A failed send breaks the document: the client state is unknown, so
// later mutations fail with E012.
func (d *Document) Flush() error {
	if d.broken != nil {
		return d.broken
	}
	for _, n := range d.detached {
		if n.parent == nil && d.nodes[n.id] == n {
			d.record(protocol.HostOp{Op: protocol.OpRelease, Node: n.id})
			d.release(n)
		}
	}
	d.detached = nil
	if len(d.ops) == 0 {
		return nil
	}

	d.seq++
	of := &protocol.OpsFrame{Seq: d.seq, Ops: d.ops}
	d.ops = nil
	if err := d.send(protocol.NewFrame(protocol.FrameOps, protocol.EncodeOps(of))); err != nil {
		d.broken = errors.New("E012").Wrap(err)
		return d.broken
	}
	d.logger.Debug("ops flushed", "seq", of.Seq, "ops", len(of.Ops))
	return nil
}

func (d *Document) release(n *node) {
	delete(d.nodes, n.id)
	for key := range d.listeners {
		if key.id == n.id {
			delete(d.listeners, key)
		}
	}
	for _, c := range n.children {
		d.release(c)
	}
}

// Deliver fires an event forwarded by the client at its target and bubbles
// it to the container, calling each listener registered on the way. It
// returns the number of listeners called.
func (d *Document) Deliver(m *protocol.EventMessage) (int, error) {
	target, ok := d.nodes[m.Target]
	if !ok || (target != d.root && !d.attached(target)) {
		return 0, errors.New("E032").WithDetailf("%s at #%d", m.Type, m.Target)
	}
	ev := m.HostEvent(target.id)
	var chain []host.Listener
	for n := target; n != nil; n = n.parent {
		if fn, ok := d.listeners[listenerKey{n.id, ev.Type}]; ok {
			chain = append(chain, fn)
		}
	}
	for _, fn := range chain {
		fn(ev)
	}
	return len(chain), nil
}

func (d *Document) attached(n *node) bool {
	for ; n != nil; n = n.parent {
		if n == d.root {
			return true
		}
	}
	return false
}
