package protocol

import (
	"fmt"

	"github.com/vango-dev/domsync/internal/errors"
)

// NodeID identifies a node of a remote document. The first IDs name nodes
// the client already has.
type NodeID uint32

const (
	// RootID is the mount container.
	RootID NodeID = 0
	// HeadID is the document's <head>, where style sheets go.
	HeadID NodeID = 1
)

// OpCode is a host mutation.
type OpCode uint8

const (
	OpCreateElement   OpCode = 0x01 // Node = new element: Namespace, Name = tag
	OpCreateText      OpCode = 0x02 // Node = new text node: Value
	OpCreateComment   OpCode = 0x03 // Node = new comment: Value
	OpSetText         OpCode = 0x04 // Node text := Value
	OpSetAttribute    OpCode = 0x05 // Node attribute Name := Value
	OpRemoveAttribute OpCode = 0x06 // Node attribute Name removed
	OpInsertChild     OpCode = 0x07 // Node inserted under Parent at Index
	OpRemoveChild     OpCode = 0x08 // Node removed from Parent
	OpListen          OpCode = 0x09 // Forward events of type Name on Node
	OpUnlisten        OpCode = 0x0A // Stop forwarding Name on Node
	OpFocus           OpCode = 0x0B // Focus Node
	OpRelease         OpCode = 0x0C // Node is detached for good, client may forget it
)

// String returns the string representation of the op code.
func (op OpCode) String() string {
	switch op {
	case OpCreateElement:
		return "CreateElement"
	case OpCreateText:
		return "CreateText"
	case OpCreateComment:
		return "CreateComment"
	case OpSetText:
		return "SetText"
	case OpSetAttribute:
		return "SetAttribute"
	case OpRemoveAttribute:
		return "RemoveAttribute"
	case OpInsertChild:
		return "InsertChild"
	case OpRemoveChild:
		return "RemoveChild"
	case OpListen:
		return "Listen"
	case OpUnlisten:
		return "Unlisten"
	case OpFocus:
		return "Focus"
	case OpRelease:
		return "Release"
	default:
		return "Unknown"
	}
}

// HostOp is one host mutation. Only the fields its op uses are encoded.
type HostOp struct {
	Op        OpCode
	Node      NodeID
	Parent    NodeID
	Index     int
	Namespace string
	Name      string
	Value     string
}

// String returns a one-line description of the op.
func (o HostOp) String() string {
	switch o.Op {
	case OpCreateElement:
		return fmt.Sprintf("CreateElement #%d <%s>", o.Node, o.Name)
	case OpCreateText, OpCreateComment, OpSetText:
		return fmt.Sprintf("%s #%d %q", o.Op, o.Node, o.Value)
	case OpSetAttribute:
		return fmt.Sprintf("SetAttribute #%d %s=%q", o.Node, o.Name, o.Value)
	case OpRemoveAttribute, OpListen, OpUnlisten:
		return fmt.Sprintf("%s #%d %s", o.Op, o.Node, o.Name)
	case OpInsertChild:
		return fmt.Sprintf("InsertChild #%d → #%d @%d", o.Node, o.Parent, o.Index)
	case OpRemoveChild:
		return fmt.Sprintf("RemoveChild #%d ← #%d", o.Node, o.Parent)
	default:
		return fmt.Sprintf("%s #%d", o.Op, o.Node)
	}
}

// OpsFrame is the batch of host mutations produced by one render cycle.
type OpsFrame struct {
	Seq uint64
	Ops []HostOp
}

// EncodeOps encodes an ops batch.
func EncodeOps(of *OpsFrame) []byte {
	e := NewEncoder()
	EncodeOpsTo(e, of)
	return e.Bytes()
}

// EncodeOpsTo encodes an ops batch into e.
func EncodeOpsTo(e *Encoder, of *OpsFrame) {
	e.WriteUvarint(of.Seq)
	e.WriteUvarint(uint64(len(of.Ops)))
	for _, op := range of.Ops {
		encodeOp(e, op)
	}
}

func encodeOp(e *Encoder, o HostOp) {
	e.WriteByte(byte(o.Op))
	e.WriteUvarint(uint64(o.Node))
	switch o.Op {
	case OpCreateElement:
		e.WriteString(o.Namespace)
		e.WriteString(o.Name)
	case OpCreateText, OpCreateComment, OpSetText:
		e.WriteString(o.Value)
	case OpSetAttribute:
		e.WriteString(o.Name)
		e.WriteString(o.Value)
	case OpRemoveAttribute, OpListen, OpUnlisten:
		e.WriteString(o.Name)
	case OpInsertChild:
		e.WriteUvarint(uint64(o.Parent))
		e.WriteInt(o.Index)
	case OpRemoveChild:
		e.WriteUvarint(uint64(o.Parent))
	}
}

// DecodeOps decodes an ops batch.
func DecodeOps(data []byte) (*OpsFrame, error) {
	d := NewDecoder(data)
	of, err := decodeOps(d)
	if err == nil {
		err = d.finish()
	}
	if err != nil {
		return nil, malformed(err, "ops")
	}
	return of, nil
}

func decodeOps(d *Decoder) (*OpsFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	of := &OpsFrame{Seq: seq, Ops: make([]HostOp, 0, count)}
	for i := 0; i < count; i++ {
		op, err := decodeOp(d)
		if err != nil {
			return nil, err
		}
		of.Ops = append(of.Ops, op)
	}
	return of, nil
}

func decodeOp(d *Decoder) (HostOp, error) {
	var o HostOp
	b, err := d.ReadByte()
	if err != nil {
		return o, err
	}
	o.Op = OpCode(b)
	if o.Op.String() == "Unknown" {
		return o, errors.New("E031").WithDetailf("host op 0x%02x", b)
	}
	if o.Node, err = readNodeID(d); err != nil {
		return o, err
	}
	switch o.Op {
	case OpCreateElement:
		if o.Namespace, err = d.ReadString(); err != nil {
			return o, err
		}
		o.Name, err = d.ReadString()
	case OpCreateText, OpCreateComment, OpSetText:
		o.Value, err = d.ReadString()
	case OpSetAttribute:
		if o.Name, err = d.ReadString(); err != nil {
			return o, err
		}
		o.Value, err = d.ReadString()
	case OpRemoveAttribute, OpListen, OpUnlisten:
		o.Name, err = d.ReadString()
	case OpInsertChild:
		if o.Parent, err = readNodeID(d); err != nil {
			return o, err
		}
		o.Index, err = d.ReadInt()
	case OpRemoveChild:
		o.Parent, err = readNodeID(d)
	}
	return o, err
}

func readNodeID(d *Decoder) (NodeID, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, ErrVarintOverflow
	}
	return NodeID(v), nil
}
