package remote

import (
	"fmt"
	"sort"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/protocol"
)

// Replayer is the client half of the protocol: it executes ops frames
// against a local host.Document and turns the native events it was asked
// to listen for into event messages.
type Replayer struct {
	doc     host.Document
	nodes   map[protocol.NodeID]host.Node
	ids     map[host.Node]protocol.NodeID
	parents map[protocol.NodeID]protocol.NodeID
	listens map[string]int
	fixed   int
	seq     uint64
	eventSq uint64
	forward func(*protocol.EventMessage)
}

// NewReplayer creates a Replayer rendering into container. forward
// receives the events fired at listened nodes; it may be nil.
func NewReplayer(doc host.Document, container host.Node, forward func(*protocol.EventMessage)) *Replayer {
	return &Replayer{
		doc:     doc,
		nodes:   map[protocol.NodeID]host.Node{protocol.RootID: container},
		ids:     map[host.Node]protocol.NodeID{container: protocol.RootID},
		parents: make(map[protocol.NodeID]protocol.NodeID),
		listens: make(map[string]int),
		fixed:   1,
		forward: forward,
	}
}

// MapHead makes head the target of ops addressed to protocol.HeadID.
func (r *Replayer) MapHead(head host.Node) {
	if _, ok := r.nodes[protocol.HeadID]; !ok {
		r.fixed++
	}
	r.nodes[protocol.HeadID] = head
	r.ids[head] = protocol.HeadID
}

// Node returns the local node of id.
func (r *Replayer) Node(id protocol.NodeID) (host.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// ID returns the id of a local node.
func (r *Replayer) ID(n host.Node) (protocol.NodeID, bool) {
	id, ok := r.ids[n]
	return id, ok
}

// Len returns the number of nodes held, the container and the head
// excluded.
func (r *Replayer) Len() int {
	return len(r.nodes) - r.fixed
}

// Listening returns the event types forwarded, sorted.
func (r *Replayer) Listening() []string {
	out := make([]string, 0, len(r.listens))
	for t := range r.listens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Seq returns the sequence number of the last frame applied.
func (r *Replayer) Seq() uint64 {
	return r.seq
}

// Apply executes a decoded ops frame. Frames must arrive in sequence.
func (r *Replayer) Apply(of *protocol.OpsFrame) error {
	if of.Seq != r.seq+1 {
		return errors.New("E030").WithDetailf("ops frame %d after %d", of.Seq, r.seq)
	}
	r.seq = of.Seq
	for i, op := range of.Ops {
		if err := r.apply(op); err != nil {
			return errors.New("E010").WithDetailf("op %d: %s", i, op).Wrap(err)
		}
	}
	return nil
}

// ApplyFrame decodes and executes an ops frame payload.
func (r *Replayer) ApplyFrame(payload []byte) error {
	of, err := protocol.DecodeOps(payload)
	if err != nil {
		return err
	}
	return r.Apply(of)
}

func (r *Replayer) node(id protocol.NodeID) (host.Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node #%d", id)
	}
	return n, nil
}

func (r *Replayer) created(id protocol.NodeID, n host.Node, err error) error {
	if err != nil {
		return err
	}
	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("node #%d already exists", id)
	}
	r.nodes[id] = n
	r.ids[n] = id
	return nil
}

func (r *Replayer) apply(op protocol.HostOp) error {
	switch op.Op {
	case protocol.OpCreateElement:
		n, err := r.doc.CreateElement(op.Namespace, op.Name)
		return r.created(op.Node, n, err)
	case protocol.OpCreateText:
		n, err := r.doc.CreateTextNode(op.Value)
		return r.created(op.Node, n, err)
	case protocol.OpCreateComment:
		n, err := r.doc.CreateComment(op.Value)
		return r.created(op.Node, n, err)
	}

	n, err := r.node(op.Node)
	if err != nil {
		return err
	}
	switch op.Op {
	case protocol.OpSetText:
		return r.doc.SetText(n, op.Value)
	case protocol.OpSetAttribute:
		return r.doc.SetAttribute(n, op.Name, op.Value)
	case protocol.OpRemoveAttribute:
		return r.doc.RemoveAttribute(n, op.Name)
	case protocol.OpInsertChild, protocol.OpRemoveChild:
		parent, err := r.node(op.Parent)
		if err != nil {
			return err
		}
		if op.Op == protocol.OpInsertChild {
			if err := r.doc.InsertChild(parent, n, op.Index); err != nil {
				return err
			}
			r.parents[op.Node] = op.Parent
			return nil
		}
		if err := r.doc.RemoveChild(parent, n); err != nil {
			return err
		}
		delete(r.parents, op.Node)
		return nil
	case protocol.OpListen:
		if err := r.doc.AddEventListener(n, op.Name, r.native); err != nil {
			return err
		}
		r.listens[op.Name]++
		return nil
	case protocol.OpUnlisten:
		if err := r.doc.RemoveEventListener(n, op.Name); err != nil {
			return err
		}
		if r.listens[op.Name]--; r.listens[op.Name] <= 0 {
			delete(r.listens, op.Name)
		}
		return nil
	case protocol.OpFocus:
		if f, ok := r.doc.(host.Focuser); ok {
			return f.Focus(n)
		}
		return nil
	case protocol.OpRelease:
		r.release(op.Node)
		return nil
	}
	return fmt.Errorf("unsupported op %s", op.Op)
}

// release forgets id and every node below it.
func (r *Replayer) release(id protocol.NodeID) {
	if _, ok := r.nodes[id]; !ok {
		return
	}
	var doomed []protocol.NodeID
	for x := range r.nodes {
		for p, ok := x, true; ok; p, ok = r.parents[p] {
			if p == id {
				doomed = append(doomed, x)
				break
			}
		}
	}
	for _, x := range doomed {
		delete(r.ids, r.nodes[x])
		delete(r.nodes, x)
		delete(r.parents, x)
	}
}

func (r *Replayer) native(ev host.Event) {
	if r.forward == nil {
		return
	}
	id, ok := r.ids[ev.Target]
	if !ok {
		return
	}
	r.eventSq++
	r.forward(&protocol.EventMessage{
		Seq:     r.eventSq,
		Type:    ev.Type,
		Target:  id,
		Value:   ev.Value,
		Key:     ev.Key,
		Checked: ev.Checked,
		Detail:  ev.Detail,
	})
}
