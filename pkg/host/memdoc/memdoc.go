// Package memdoc is an in-memory host.Document. It backs headless
// rendering, the CLI round-trip check and the tests of the packages that
// drive a document.
//
// A Document is not safe for concurrent use; like a browser document it
// belongs to one UI loop.
package memdoc

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// Kind is the type of a live node.
type Kind uint8

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
)

// Node is a live node. Handles handed out by a Document are *Node.
type Node struct {
	ID        int
	Kind      Kind
	Namespace string
	Tag       string
	Text      string
	Attrs     []Attr
	Parent    *Node
	Children  []*Node
}

// Attr is a live attribute.
type Attr struct {
	Name  string
	Value string
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

type listenerKey struct {
	node      *Node
	eventType string
}

// Document is an in-memory document with detached <head> and <body>
// elements.
type Document struct {
	nextID    int
	head      *Node
	body      *Node
	listeners map[listenerKey]host.Listener
	focused   *Node
	failures  map[string]error
	counts    map[string]int
	flushes   int
}

// New returns an empty document.
func New() *Document {
	d := &Document{
		listeners: make(map[listenerKey]host.Listener),
		failures:  make(map[string]error),
		counts:    make(map[string]int),
	}
	d.head = d.newNode(ElementNode)
	d.head.Tag = "head"
	d.body = d.newNode(ElementNode)
	d.body.Tag = "body"
	return d
}

// Head returns the <head> element, where style sheets go.
func (d *Document) Head() *Node {
	return d.head
}

// Body returns the root element, the usual mount container.
func (d *Document) Body() *Node {
	return d.body
}

func (d *Document) newNode(kind Kind) *Node {
	d.nextID++
	return &Node{ID: d.nextID, Kind: kind}
}

// FailNext makes the next call of the named operation ("InsertChild",
// "SetAttribute", ...) fail with err.
func (d *Document) FailNext(op string, err error) {
	d.failures[op] = err
}

// Count returns how many times the named operation succeeded.
func (d *Document) Count(op string) int {
	return d.counts[op]
}

// Flushes returns how many times Flush was called.
func (d *Document) Flushes() int {
	return d.flushes
}

// Focused returns the node that last received focus.
func (d *Document) Focused() *Node {
	return d.focused
}

func (d *Document) enter(op string) error {
	if err, ok := d.failures[op]; ok {
		delete(d.failures, op)
		return err
	}
	d.counts[op]++
	return nil
}

func (d *Document) node(h host.Node) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("memdoc: foreign node handle %T", h)
	}
	return n, nil
}

func (d *Document) element(h host.Node) (*Node, error) {
	n, err := d.node(h)
	if err != nil {
		return nil, err
	}
	if n.Kind != ElementNode {
		return nil, fmt.Errorf("memdoc: node %d is not an element", n.ID)
	}
	return n, nil
}

// CreateElement implements host.Document.
func (d *Document) CreateElement(namespace, tag string) (host.Node, error) {
	if err := d.enter("CreateElement"); err != nil {
		return nil, err
	}
	if tag == "" {
		return nil, fmt.Errorf("memdoc: empty tag name")
	}
	n := d.newNode(ElementNode)
	n.Namespace = namespace
	n.Tag = tag
	return n, nil
}

// CreateTextNode implements host.Document.
func (d *Document) CreateTextNode(text string) (host.Node, error) {
	if err := d.enter("CreateTextNode"); err != nil {
		return nil, err
	}
	n := d.newNode(TextNode)
	n.Text = text
	return n, nil
}

// CreateComment implements host.Document.
func (d *Document) CreateComment(text string) (host.Node, error) {
	if err := d.enter("CreateComment"); err != nil {
		return nil, err
	}
	n := d.newNode(CommentNode)
	n.Text = text
	return n, nil
}

// SetText implements host.Document.
func (d *Document) SetText(h host.Node, text string) error {
	if err := d.enter("SetText"); err != nil {
		return err
	}
	n, err := d.node(h)
	if err != nil {
		return err
	}
	if n.Kind == ElementNode {
		return fmt.Errorf("memdoc: SetText on element %d", n.ID)
	}
	n.Text = text
	return nil
}

// SetAttribute implements host.Document.
func (d *Document) SetAttribute(h host.Node, name, value string) error {
	if err := d.enter("SetAttribute"); err != nil {
		return err
	}
	n, err := d.element(h)
	if err != nil {
		return err
	}
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return nil
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return nil
}

// RemoveAttribute implements host.Document. Removing an absent attribute is
// not an error.
func (d *Document) RemoveAttribute(h host.Node, name string) error {
	if err := d.enter("RemoveAttribute"); err != nil {
		return err
	}
	n, err := d.element(h)
	if err != nil {
		return err
	}
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return nil
		}
	}
	return nil
}

// InsertChild implements host.Document.
func (d *Document) InsertChild(ph, ch host.Node, index int) error {
	if err := d.enter("InsertChild"); err != nil {
		return err
	}
	parent, err := d.element(ph)
	if err != nil {
		return err
	}
	child, err := d.node(ch)
	if err != nil {
		return err
	}
	for p := parent; p != nil; p = p.Parent {
		if p == child {
			return fmt.Errorf("memdoc: cannot insert node %d into its own subtree", child.ID)
		}
	}
	limit := len(parent.Children)
	if child.Parent == parent {
		limit--
	}
	if index < 0 || index > limit {
		return fmt.Errorf("memdoc: index %d out of range [0,%d]", index, limit)
	}
	if child.Parent != nil {
		child.Parent.Children = without(child.Parent.Children, child)
		child.Parent = nil
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = child
	child.Parent = parent
	return nil
}

// RemoveChild implements host.Document.
func (d *Document) RemoveChild(ph, ch host.Node) error {
	if err := d.enter("RemoveChild"); err != nil {
		return err
	}
	parent, err := d.element(ph)
	if err != nil {
		return err
	}
	child, err := d.node(ch)
	if err != nil {
		return err
	}
	if child.Parent != parent {
		return fmt.Errorf("memdoc: node %d is not a child of %d", child.ID, parent.ID)
	}
	parent.Children = without(parent.Children, child)
	child.Parent = nil
	return nil
}

func without(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// AddEventListener implements host.Document.
func (d *Document) AddEventListener(target host.Node, eventType string, fn host.Listener) error {
	if err := d.enter("AddEventListener"); err != nil {
		return err
	}
	n, err := d.node(target)
	if err != nil {
		return err
	}
	d.listeners[listenerKey{n, eventType}] = fn
	return nil
}

// RemoveEventListener implements host.Document.
func (d *Document) RemoveEventListener(target host.Node, eventType string) error {
	if err := d.enter("RemoveEventListener"); err != nil {
		return err
	}
	n, err := d.node(target)
	if err != nil {
		return err
	}
	delete(d.listeners, listenerKey{n, eventType})
	return nil
}

// ListenerTypes returns the event types with a listener on n, sorted.
func (d *Document) ListenerTypes(n *Node) []string {
	var out []string
	for k := range d.listeners {
		if k.node == n {
			out = append(out, k.eventType)
		}
	}
	sort.Strings(out)
	return out
}

// Focus implements host.Focuser.
func (d *Document) Focus(h host.Node) error {
	n, err := d.element(h)
	if err != nil {
		return err
	}
	d.focused = n
	return nil
}

// Flush implements host.Flusher.
func (d *Document) Flush() error {
	if err := d.enter("Flush"); err != nil {
		return err
	}
	d.flushes++
	return nil
}

// Fire delivers an event at target and lets it bubble to the root, calling
// every listener registered on the way. It returns the number of listeners
// called.
func (d *Document) Fire(target *Node, ev host.Event) int {
	ev.Target = target
	called := 0
	for n := target; n != nil; n = n.Parent {
		if fn, ok := d.listeners[listenerKey{n, ev.Type}]; ok {
			fn(ev)
			called++
		}
	}
	return called
}

// Find returns the first element in document order below root (root
// included) whose attribute name has the given value.
func Find(root *Node, name, value string) *Node {
	if root == nil {
		return nil
	}
	if v, ok := root.Attr(name); ok && v == value && root.Kind == ElementNode {
		return root
	}
	for _, c := range root.Children {
		if n := Find(c, name, value); n != nil {
			return n
		}
	}
	return nil
}

// HTML serializes the children of n. Attributes are written sorted by name.
func HTML(n *Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		writeNode(&b, c)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Kind {
	case TextNode:
		b.WriteString(html.EscapeString(n.Text))
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		attrs := append([]Attr(nil), n.Attrs...)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
		for _, a := range attrs {
			writeAttr(b, a.Name, a.Value)
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			writeNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteByte('"')
}

// Markup serializes a virtual tree the way HTML serializes the live tree it
// mounts to: fragments are flattened, listeners and false booleans are
// omitted. A live tree is in sync with a virtual tree when both strings
// match.
func Markup(tree *vdom.VNode) string {
	var b strings.Builder
	for _, r := range vdom.Roots(tree) {
		writeVNode(&b, r)
	}
	return b.String()
}

func writeVNode(b *strings.Builder, v *vdom.VNode) {
	switch v.Kind {
	case vdom.KindText:
		b.WriteString(html.EscapeString(v.Text))
	case vdom.KindComment:
		b.WriteString("<!--")
		b.WriteString(v.Text)
		b.WriteString("-->")
	case vdom.KindElement:
		b.WriteByte('<')
		b.WriteString(v.Tag)
		var attrs []Attr
		for _, a := range v.Attrs {
			if a.Value.Kind == vdom.ValueListener || !a.Value.Truthy() {
				continue
			}
			attrs = append(attrs, Attr{Name: a.Key, Value: a.Value.String()})
		}
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
		for _, a := range attrs {
			writeAttr(b, a.Name, a.Value)
		}
		b.WriteByte('>')
		for _, c := range vdom.Flatten(v.Children) {
			writeVNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(v.Tag)
		b.WriteByte('>')
	}
}
