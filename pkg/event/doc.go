// Package event delivers native host events to virtual-node callbacks.
//
// A Dispatcher registers one delegated listener per event type on the mount
// container. When a native event arrives it finds the live node at the
// event target through the Patcher's NodeMap and walks up to the container,
// calling each matching listener with a normalized vdom.Event until one
// calls StopPropagation.
package event
