package vdom

import "strings"

// Handler is an event callback.
type Handler func(e *Event)

// Listener is the value carried by an on<event> attribute. Listener values
// compare by pointer identity, so every render that builds a new Listener is
// seen as a changed slot by Diff.
type Listener struct {
	Event   string // "click", "input", etc.
	Handler Handler
}

// Event is the normalized payload passed to handlers.
type Event struct {
	Type    string            // "click", "input", ...
	Value   string            // Current value for form controls
	Key     string            // Key name for keyboard events
	Checked bool              // Checkbox/radio state
	Detail  map[string]string // Host-specific extras
	Path    Path              // Node currently handling the event
	Target  Path              // Node the event was fired at

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// IsListenerName reports whether an attribute name designates an event
// listener slot ("onclick", "onInput", ...).
func IsListenerName(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}

// EventType returns the event type for a listener attribute name:
// "onclick" → "click".
func EventType(name string) string {
	if !IsListenerName(name) {
		return ""
	}
	return strings.ToLower(name[2:])
}

// On creates a listener attribute for an arbitrary event type.
func On(eventType string, handler Handler) Attr {
	eventType = strings.ToLower(eventType)
	return Attr{
		Key:   "on" + eventType,
		Value: ListenerValue(&Listener{Event: eventType, Handler: handler}),
	}
}

// Mouse events

// OnClick handles click events.
func OnClick(handler Handler) Attr { return On("click", handler) }

// OnDblClick handles double-click events.
func OnDblClick(handler Handler) Attr { return On("dblclick", handler) }

// OnMouseDown handles mousedown events.
func OnMouseDown(handler Handler) Attr { return On("mousedown", handler) }

// OnMouseUp handles mouseup events.
func OnMouseUp(handler Handler) Attr { return On("mouseup", handler) }

// OnMouseOver handles mouseover events.
func OnMouseOver(handler Handler) Attr { return On("mouseover", handler) }

// OnContextMenu handles contextmenu (right-click) events.
func OnContextMenu(handler Handler) Attr { return On("contextmenu", handler) }

// Keyboard events

// OnKeyDown handles keydown events.
func OnKeyDown(handler Handler) Attr { return On("keydown", handler) }

// OnKeyUp handles keyup events.
func OnKeyUp(handler Handler) Attr { return On("keyup", handler) }

// Form events

// OnInput handles input events (fired when value changes).
func OnInput(handler Handler) Attr { return On("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler Handler) Attr { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler Handler) Attr { return On("submit", handler) }

// OnFocusIn handles focusin events (bubbles, unlike focus).
func OnFocusIn(handler Handler) Attr { return On("focusin", handler) }

// OnFocusOut handles focusout events (bubbles, unlike blur).
func OnFocusOut(handler Handler) Attr { return On("focusout", handler) }

// Pointer and scroll events

// OnPointerDown handles pointerdown events.
func OnPointerDown(handler Handler) Attr { return On("pointerdown", handler) }

// OnPointerUp handles pointerup events.
func OnPointerUp(handler Handler) Attr { return On("pointerup", handler) }

// OnScroll handles scroll events.
func OnScroll(handler Handler) Attr { return On("scroll", handler) }
