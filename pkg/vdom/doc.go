// Package vdom provides the virtual DOM node model and the tree differ.
//
// The Virtual DOM (VDOM) is an immutable, in-memory description of the UI.
// Successive trees are compared with Diff, which produces the ordered patch
// sequence a dom.Patcher applies to the live document.
//
// # Core Types
//
// VNode is the fundamental building block representing elements, text,
// comments and fragments. Attrs is an ordered attribute mapping whose values
// are strings, booleans, numbers, style mappings or event listeners.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	    OnClick(handler),
//	)
//
// # Diffing
//
// Diff compares two trees and returns a slice of Patch operations addressed
// by Path. Keyed reconciliation is used when every child of a sibling group
// carries a unique Key; other groups are matched by position.
//
// Listener values compare by identity. A tree built by a fresh render
// carries fresh listeners, so their slots show up as SetAttribute patches;
// the patcher applies those to its node map only, never to the host.
package vdom
