package vdom

// Diff compares two VNode trees and returns the patches needed to transform
// a live tree rendered from prev into one rendered from next.
//
// Paths are relative to the mount container: the flattened roots of each
// tree are the container's children. Every patch is valid against the live
// state left by the patches before it, so the result must be applied in
// order. Within one sibling group, removals come first, then moves and
// inserts, then the recursion into the surviving children at their final
// positions.
//
// Diff never fails. Sibling groups whose keys are missing, mixed or
// duplicated are reconciled by position.
func Diff(prev, next *VNode) []Patch {
	var d differ
	d.children(nil, Roots(prev), Roots(next))
	return d.patches
}

type differ struct {
	patches []Patch
}

func (d *differ) emit(p Patch) {
	d.patches = append(d.patches, p)
}

// node compares two non-fragment nodes living at path.
func (d *differ) node(path Path, prev, next *VNode) {
	if Equal(prev, next) {
		return
	}

	// Different kind, tag or namespace - replace the whole subtree
	if prev.Kind != next.Kind || prev.Tag != next.Tag || prev.Namespace != next.Namespace {
		d.emit(Patch{Op: PatchReplaceNode, Path: path, Node: next})
		return
	}

	switch prev.Kind {
	case KindText, KindComment:
		if prev.Text != next.Text {
			d.emit(Patch{Op: PatchSetText, Path: path, Text: next.Text})
		}
	case KindElement:
		d.attrs(path, prev.Attrs, next.Attrs)
		d.children(path, Flatten(prev.Children), Flatten(next.Children))
	}
}

// attrs emits RemoveAttribute for names that vanished (old order) and
// SetAttribute for names that were added or changed (new order).
func (d *differ) attrs(path Path, prev, next Attrs) {
	for _, a := range prev {
		if !next.Has(a.Key) {
			d.emit(Patch{Op: PatchRemoveAttribute, Path: path, Key: a.Key})
		}
	}
	for _, a := range next {
		if old, ok := prev.Get(a.Key); !ok || !old.Equal(a.Value) {
			d.emit(Patch{Op: PatchSetAttribute, Path: path, Key: a.Key, Value: a.Value})
		}
	}
}

// children reconciles two flattened sibling groups under parent.
func (d *differ) children(parent Path, prev, next []*VNode) {
	if len(prev) == 0 && len(next) == 0 {
		return
	}
	if uniquelyKeyed(prev) && uniquelyKeyed(next) {
		d.keyed(parent, prev, next)
		return
	}
	d.positional(parent, prev, next)
}

// positional matches children by index and edits only at the tail.
func (d *differ) positional(parent Path, prev, next []*VNode) {
	common := min(len(prev), len(next))
	for i := 0; i < common; i++ {
		d.node(parent.Child(i), prev[i], next[i])
	}
	for i := len(prev) - 1; i >= common; i-- {
		d.emit(Patch{Op: PatchRemoveNode, Path: parent.Child(i)})
	}
	if len(next) > common {
		d.emit(Patch{
			Op:    PatchInsertChildren,
			Path:  parent,
			Index: common,
			Nodes: next[common:],
		})
	}
}

// keyed matches children by key. Survivors on the longest increasing
// subsequence of their old positions stay put; every other survivor is moved
// once, right before its successor in the new order.
func (d *differ) keyed(parent Path, prev, next []*VNode) {
	oldIndex := make(map[string]int, len(prev))
	for i, c := range prev {
		oldIndex[c.Key] = i
	}
	sources := make([]int, len(next))
	kept := make(map[string]struct{}, len(next))
	for j, c := range next {
		if i, ok := oldIndex[c.Key]; ok {
			sources[j] = i
			kept[c.Key] = struct{}{}
		} else {
			sources[j] = -1
		}
	}

	// live mirrors the keys of the live child list as patches are emitted.
	live := make([]string, 0, len(prev)+len(next))
	for i := len(prev) - 1; i >= 0; i-- {
		if _, ok := kept[prev[i].Key]; !ok {
			d.emit(Patch{Op: PatchRemoveNode, Path: parent.Child(i)})
		}
	}
	for _, c := range prev {
		if _, ok := kept[c.Key]; ok {
			live = append(live, c.Key)
		}
	}

	stable := longestIncreasing(sources)

	var pending []*VNode // run of new nodes waiting for their anchor
	anchor := ""         // key of the node already placed to the right; "" is the end
	flush := func() {
		if len(pending) == 0 {
			return
		}
		at := indexOf(live, anchor)
		d.emit(Patch{Op: PatchInsertChildren, Path: parent, Index: at, Nodes: pending})
		keys := make([]string, len(pending))
		for i, n := range pending {
			keys[i] = n.Key
		}
		live = insertKeys(live, at, keys...)
		anchor = pending[0].Key
		pending = nil
	}

	for j := len(next) - 1; j >= 0; j-- {
		c := next[j]
		if sources[j] < 0 {
			pending = append([]*VNode{c}, pending...)
			continue
		}
		flush()
		if !stable[j] {
			from := indexOf(live, c.Key)
			live = append(live[:from], live[from+1:]...)
			to := indexOf(live, anchor)
			live = insertKeys(live, to, c.Key)
			d.emit(Patch{Op: PatchMoveNode, Path: parent.Child(from), To: parent.Child(to)})
		}
		anchor = c.Key
	}
	flush()

	for j, c := range next {
		if sources[j] >= 0 {
			d.node(parent.Child(j), prev[sources[j]], c)
		}
	}
}

// uniquelyKeyed reports whether every node in the group carries a key and no
// key repeats.
func uniquelyKeyed(group []*VNode) bool {
	seen := make(map[string]struct{}, len(group))
	for _, c := range group {
		if c.Key == "" {
			return false
		}
		if _, dup := seen[c.Key]; dup {
			return false
		}
		seen[c.Key] = struct{}{}
	}
	return true
}

// longestIncreasing marks the positions of one longest strictly increasing
// subsequence of sources, ignoring negative entries.
func longestIncreasing(sources []int) []bool {
	stable := make([]bool, len(sources))
	prevs := make([]int, len(sources))
	var tails []int // positions; sources[tails[k]] is the smallest tail of length k+1
	for j, s := range sources {
		if s < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if sources[tails[mid]] < s {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prevs[j] = tails[lo-1]
		} else {
			prevs[j] = -1
		}
		if lo == len(tails) {
			tails = append(tails, j)
		} else {
			tails[lo] = j
		}
	}
	if len(tails) == 0 {
		return stable
	}
	for j := tails[len(tails)-1]; j >= 0; j = prevs[j] {
		stable[j] = true
	}
	return stable
}

// indexOf returns the position of key in live, or len(live) for "".
func indexOf(live []string, key string) int {
	if key == "" {
		return len(live)
	}
	for i, k := range live {
		if k == key {
			return i
		}
	}
	return len(live)
}

func insertKeys(live []string, at int, keys ...string) []string {
	out := make([]string, 0, len(live)+len(keys))
	out = append(out, live[:at]...)
	out = append(out, keys...)
	return append(out, live[at:]...)
}
