// Package dom applies vdom patch sequences to a live host document.
//
// A Patcher owns the NodeMap of one mount container: a mirror of the live
// tree that resolves patch paths and maps host handles back to the virtual
// nodes rendered there. Both are updated patch by patch, so a removed node
// disappears from the map in the same step it leaves the document.
//
//	p := dom.NewPatcher(doc, container)
//	if err := p.Mount(tree); err != nil {
//	    return err
//	}
//	err := p.Apply(vdom.Diff(tree, next))
//
// Listener attributes are kept in the map and never written to the host;
// the event package routes native events to them.
package dom
