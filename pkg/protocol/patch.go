package protocol

import (
	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// PatchesFrame is an encoded patch sequence, as produced by vdom.Diff.
type PatchesFrame struct {
	Seq     uint64
	Patches []vdom.Patch
}

// EncodePatches encodes a patch sequence.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patch sequence into e.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for _, p := range pf.Patches {
		EncodePatch(e, p)
	}
}

// EncodePatch writes one patch into e.
func EncodePatch(e *Encoder, p vdom.Patch) {
	e.WriteByte(byte(p.Op))
	encodePath(e, p.Path)
	switch p.Op {
	case vdom.PatchSetText:
		e.WriteString(p.Text)
	case vdom.PatchSetAttribute:
		e.WriteString(p.Key)
		EncodeValue(e, p.Value)
	case vdom.PatchRemoveAttribute:
		e.WriteString(p.Key)
	case vdom.PatchInsertChildren:
		e.WriteInt(p.Index)
		encodeChildren(e, p.Nodes)
	case vdom.PatchMoveNode:
		encodePath(e, p.To)
	case vdom.PatchReplaceNode:
		EncodeVNode(e, p.Node)
	}
}

func encodePath(e *Encoder, path vdom.Path) {
	e.WriteUvarint(uint64(len(path)))
	for _, i := range path {
		e.WriteInt(i)
	}
}

// DecodePatches decodes a patch sequence.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := decodePatches(d)
	if err == nil {
		err = d.finish()
	}
	if err != nil {
		return nil, malformed(err, "patches")
	}
	return pf, nil
}

func decodePatches(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	pf := &PatchesFrame{Seq: seq, Patches: make([]vdom.Patch, 0, count)}
	for i := 0; i < count; i++ {
		p, err := DecodePatch(d)
		if err != nil {
			return nil, err
		}
		pf.Patches = append(pf.Patches, p)
	}
	return pf, nil
}

// DecodePatch reads one patch written by EncodePatch.
func DecodePatch(d *Decoder) (vdom.Patch, error) {
	var p vdom.Patch
	b, err := d.ReadByte()
	if err != nil {
		return p, err
	}
	p.Op = vdom.PatchOp(b)
	if p.Op.String() == "Unknown" {
		return p, errors.New("E031").WithDetailf("patch op 0x%02x", b)
	}
	if p.Path, err = decodePath(d); err != nil {
		return p, err
	}
	switch p.Op {
	case vdom.PatchSetText:
		p.Text, err = d.ReadString()
	case vdom.PatchSetAttribute:
		if p.Key, err = d.ReadString(); err != nil {
			return p, err
		}
		p.Value, err = DecodeValue(d)
	case vdom.PatchRemoveAttribute:
		p.Key, err = d.ReadString()
	case vdom.PatchInsertChildren:
		if p.Index, err = d.ReadInt(); err != nil {
			return p, err
		}
		var count int
		if count, err = d.ReadCollectionCount(); err != nil {
			return p, err
		}
		for i := 0; i < count; i++ {
			n, err := DecodeVNode(d)
			if err != nil {
				return p, err
			}
			p.Nodes = append(p.Nodes, n)
		}
	case vdom.PatchMoveNode:
		p.To, err = decodePath(d)
	case vdom.PatchReplaceNode:
		p.Node, err = DecodeVNode(d)
	}
	return p, err
}

func decodePath(d *Decoder) (vdom.Path, error) {
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if n > MaxPathLength {
		return nil, ErrMaxDepthExceeded
	}
	path := make(vdom.Path, n)
	for i := range path {
		if path[i], err = d.ReadInt(); err != nil {
			return nil, err
		}
	}
	return path, nil
}
