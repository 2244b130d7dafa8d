package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindComment               // <!-- comment -->
	KindFragment              // Grouping without wrapper
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComment:
		return "Comment"
	case KindFragment:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
//
// A VNode is treated as immutable once it has been handed to Diff or a
// Patcher. Children are owned by their parent; a node must not appear twice
// in the same tree.
type VNode struct {
	Kind      VKind    // Node type
	Tag       string   // Element tag name (e.g., "div")
	Namespace string   // Element namespace URI, empty for HTML
	Attrs     Attrs    // Attributes and event listeners, ordered
	Children  []*VNode // Child nodes
	Key       string   // Reconciliation key, empty when absent
	Text      string   // For KindText and KindComment
}

// IsInteractive returns true if this node carries at least one event listener.
func (v *VNode) IsInteractive() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	for _, a := range v.Attrs {
		if a.Value.Kind == ValueListener {
			return true
		}
	}
	return false
}

// Attr returns the value of the named attribute.
func (v *VNode) Attr(name string) (Value, bool) {
	if v == nil {
		return Value{}, false
	}
	return v.Attrs.Get(name)
}

// Listeners returns the event listeners of the node keyed by event type.
func (v *VNode) Listeners() map[string]*Listener {
	if v == nil {
		return nil
	}
	var out map[string]*Listener
	for _, a := range v.Attrs {
		if a.Value.Kind != ValueListener || a.Value.Listener == nil {
			continue
		}
		if out == nil {
			out = make(map[string]*Listener)
		}
		out[EventType(a.Key)] = a.Value.Listener
	}
	return out
}

// NodeCount returns the number of nodes in the tree rooted at v.
func NodeCount(v *VNode) int {
	if v == nil {
		return 0
	}
	n := 1
	for _, c := range v.Children {
		n += NodeCount(c)
	}
	return n
}

// Flatten splices fragments into the surrounding child list and drops nil
// entries. A fragment has no live node of its own, so the Differ and the
// Patcher only ever see flattened groups.
func Flatten(children []*VNode) []*VNode {
	needs := false
	for _, c := range children {
		if c == nil || c.Kind == KindFragment {
			needs = true
			break
		}
	}
	if !needs {
		return children
	}
	out := make([]*VNode, 0, len(children))
	for _, c := range children {
		switch {
		case c == nil:
		case c.Kind == KindFragment:
			out = append(out, Flatten(c.Children)...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the flattened child list the tree contributes to its mount
// container. A nil tree renders nothing.
func Roots(tree *VNode) []*VNode {
	if tree == nil {
		return nil
	}
	return Flatten([]*VNode{tree})
}
