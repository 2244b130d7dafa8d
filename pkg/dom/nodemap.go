package dom

import (
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// LiveNode mirrors one node of the live document.
type LiveNode struct {
	Handle    host.Node
	Kind      vdom.VKind
	Tag       string
	Namespace string

	// Listeners holds the callbacks of the virtual node currently rendered
	// here, keyed by event type. They never reach the host.
	Listeners map[string]*vdom.Listener

	// slots maps listener attribute names to the event type they fill.
	slots map[string]string

	parent   *LiveNode
	children []*LiveNode
}

// Parent returns the parent node, or nil for the mount container.
func (n *LiveNode) Parent() *LiveNode {
	return n.parent
}

// Children returns the live children in document order.
func (n *LiveNode) Children() []*LiveNode {
	return n.children
}

// Path returns the current path of n from the mount container.
func (n *LiveNode) Path() vdom.Path {
	depth := 0
	for p := n; p.parent != nil; p = p.parent {
		depth++
	}
	path := make(vdom.Path, depth)
	for p := n; p.parent != nil; p = p.parent {
		depth--
		path[depth] = p.parent.indexOf(p)
	}
	return path
}

func (n *LiveNode) indexOf(child *LiveNode) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// NodeMap tracks the live nodes rendered under one mount container. It is
// updated by the Patcher as each patch lands, so path resolution and
// handle lookups always describe the current live tree.
type NodeMap struct {
	root     *LiveNode
	byHandle map[host.Node]*LiveNode
}

func newNodeMap(container host.Node) *NodeMap {
	root := &LiveNode{Handle: container, Kind: vdom.KindElement}
	return &NodeMap{
		root:     root,
		byHandle: map[host.Node]*LiveNode{container: root},
	}
}

// Root returns the entry of the mount container.
func (m *NodeMap) Root() *LiveNode {
	return m.root
}

// Len returns the number of rendered nodes, the container excluded.
func (m *NodeMap) Len() int {
	return len(m.byHandle) - 1
}

// Resolve walks path from the container.
func (m *NodeMap) Resolve(path vdom.Path) (*LiveNode, bool) {
	n := m.root
	for _, i := range path {
		if i < 0 || i >= len(n.children) {
			return nil, false
		}
		n = n.children[i]
	}
	return n, true
}

// Lookup returns the entry of a live handle. Handles of removed nodes are
// not found.
func (m *NodeMap) Lookup(h host.Node) (*LiveNode, bool) {
	n, ok := m.byHandle[h]
	return n, ok
}

// attach links n at index under parent and registers its subtree.
func (m *NodeMap) attach(parent *LiveNode, index int, n *LiveNode) {
	m.relink(parent, index, n)
	m.register(n)
}

// detach unlinks n from its parent and returns its former index. The
// subtree stays registered.
func (m *NodeMap) detach(n *LiveNode) int {
	p := n.parent
	i := p.indexOf(n)
	p.children = append(p.children[:i], p.children[i+1:]...)
	n.parent = nil
	return i
}

// relink puts a detached node back under parent at index.
func (m *NodeMap) relink(parent *LiveNode, index int, n *LiveNode) {
	parent.children = append(parent.children, nil)
	copy(parent.children[index+1:], parent.children[index:])
	parent.children[index] = n
	n.parent = parent
}

func (m *NodeMap) register(n *LiveNode) {
	m.byHandle[n.Handle] = n
	for _, c := range n.children {
		m.register(c)
	}
}

// purge unregisters the subtree of n.
func (m *NodeMap) purge(n *LiveNode) {
	delete(m.byHandle, n.Handle)
	for _, c := range n.children {
		m.purge(c)
	}
}

// reset drops every rendered node.
func (m *NodeMap) reset() {
	for _, c := range m.root.children {
		m.purge(c)
		c.parent = nil
	}
	m.root.children = nil
}

// Walk calls fn for every rendered node in document order.
func (m *NodeMap) Walk(fn func(*LiveNode)) {
	var walk func(*LiveNode)
	walk = func(n *LiveNode) {
		for _, c := range n.children {
			fn(c)
			walk(c)
		}
	}
	walk(m.root)
}

// dropListener forgets the listener filling the attribute slot name and
// reports whether there was one.
func (n *LiveNode) dropListener(name string) bool {
	typ, ok := n.slots[name]
	if !ok {
		return false
	}
	delete(n.slots, name)
	delete(n.Listeners, typ)
	return true
}
