// Package host defines the document capability the patcher and dispatcher
// drive. A browser binding, a remote client or the in-memory memdoc package
// can implement it.
package host

// Node is an opaque handle to a live document node. Handles must be
// comparable; they are used as map keys for reverse lookups.
type Node any

// Event is a native event as delivered by the host.
type Event struct {
	Type    string            // "click", "input", ...
	Target  Node              // Node the event was fired at
	Value   string            // Current value for form controls
	Key     string            // Key name for keyboard events
	Checked bool              // Checkbox/radio state
	Detail  map[string]string // Host-specific extras
}

// Listener receives native events.
type Listener func(Event)

// Document is the set of mutations and registrations the core needs from a
// live document.
type Document interface {
	CreateElement(namespace, tag string) (Node, error)
	CreateTextNode(text string) (Node, error)
	CreateComment(text string) (Node, error)

	// SetText replaces the content of a text or comment node.
	SetText(node Node, text string) error

	SetAttribute(node Node, name, value string) error
	RemoveAttribute(node Node, name string) error

	// InsertChild places child at index among the children of parent. A child
	// that is already attached is detached first and index is interpreted
	// after detaching, so the same call performs moves.
	InsertChild(parent, child Node, index int) error
	RemoveChild(parent, child Node) error

	// AddEventListener registers fn for events of the given type fired at
	// target or any of its descendants. One listener per target and type.
	AddEventListener(target Node, eventType string, fn Listener) error
	RemoveEventListener(target Node, eventType string) error
}

// Focuser is implemented by documents that can move keyboard focus.
type Focuser interface {
	Focus(node Node) error
}

// Flusher is implemented by documents that buffer mutations. Flush is
// called once at the end of every render cycle.
type Flusher interface {
	Flush() error
}
