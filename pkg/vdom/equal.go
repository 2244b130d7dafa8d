package vdom

// Equal reports whether two trees are structurally identical: same kinds,
// tags, namespaces, keys, text, attributes and children.
// Listener slots are equal only when they hold the same *Listener.
func Equal(a, b *VNode) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Namespace != b.Namespace ||
		a.Key != b.Key || a.Text != b.Text {
		return false
	}
	if !a.Attrs.Equal(b.Attrs) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
