package vdom

import (
	"fmt"
	"strconv"
	"strings"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText         PatchOp = 0x01 // Update text/comment content
	PatchSetAttribute    PatchOp = 0x02 // Set/update attribute or listener slot
	PatchRemoveAttribute PatchOp = 0x03 // Remove attribute or listener slot
	PatchInsertChildren  PatchOp = 0x04 // Insert new nodes under a parent
	PatchRemoveNode      PatchOp = 0x05 // Remove node
	PatchMoveNode        PatchOp = 0x06 // Move an existing node to a new position
	PatchReplaceNode     PatchOp = 0x07 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttribute:
		return "SetAttribute"
	case PatchRemoveAttribute:
		return "RemoveAttribute"
	case PatchInsertChildren:
		return "InsertChildren"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchMoveNode:
		return "MoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single DOM operation to apply.
//
// Path is the target node, except for InsertChildren where it is the parent
// receiving Nodes at Index. For MoveNode, Path is the node's current location
// and To is its destination: To's parent receives the node at To's last
// index, counted after the node has been detached.
type Patch struct {
	Op    PatchOp  // Operation type
	Path  Path     // Target node (parent for InsertChildren)
	To    Path     // Destination for MoveNode
	Index int      // Insert position for InsertChildren
	Nodes []*VNode // For InsertChildren
	Node  *VNode   // For ReplaceNode
	Key   string   // Attribute name (for SetAttribute/RemoveAttribute)
	Value Value    // New attribute value
	Text  string   // New content for SetText
}

// String returns a one-line description of the patch.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetText:
		return fmt.Sprintf("SetText %s %s", p.Path, strconv.Quote(p.Text))
	case PatchSetAttribute:
		if p.Value.Kind == ValueListener {
			return fmt.Sprintf("SetAttribute %s %s=<listener>", p.Path, p.Key)
		}
		return fmt.Sprintf("SetAttribute %s %s=%s", p.Path, p.Key, strconv.Quote(p.Value.String()))
	case PatchRemoveAttribute:
		return fmt.Sprintf("RemoveAttribute %s %s", p.Path, p.Key)
	case PatchInsertChildren:
		names := make([]string, len(p.Nodes))
		for i, n := range p.Nodes {
			names[i] = describe(n)
		}
		return fmt.Sprintf("InsertChildren %s @%d [%s]", p.Path, p.Index, strings.Join(names, " "))
	case PatchRemoveNode:
		return fmt.Sprintf("RemoveNode %s", p.Path)
	case PatchMoveNode:
		return fmt.Sprintf("MoveNode %s -> %s", p.Path, p.To)
	case PatchReplaceNode:
		return fmt.Sprintf("ReplaceNode %s %s", p.Path, describe(p.Node))
	}
	return "Unknown"
}

// describe returns a short label for a node.
func describe(n *VNode) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindElement:
		if n.Key != "" {
			return "<" + n.Tag + " key=" + n.Key + ">"
		}
		return "<" + n.Tag + ">"
	case KindText:
		return strconv.Quote(n.Text)
	case KindComment:
		return "<!--" + n.Text + "-->"
	case KindFragment:
		return "<>"
	}
	return "?"
}
