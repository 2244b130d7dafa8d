package protocol

import (
	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// nullNode marks a nil tree.
const nullNode = 0xFF

// EncodeVNode writes a tree into e. Listener values travel as their event
// type only; handlers stay on the side that rendered them.
func EncodeVNode(e *Encoder, v *vdom.VNode) {
	if v == nil {
		e.WriteByte(nullNode)
		return
	}
	e.WriteByte(byte(v.Kind))
	switch v.Kind {
	case vdom.KindText, vdom.KindComment:
		e.WriteString(v.Text)
	case vdom.KindElement:
		e.WriteString(v.Tag)
		e.WriteString(v.Namespace)
		e.WriteString(v.Key)
		e.WriteUvarint(uint64(len(v.Attrs)))
		for _, a := range v.Attrs {
			e.WriteString(a.Key)
			EncodeValue(e, a.Value)
		}
		encodeChildren(e, v.Children)
	case vdom.KindFragment:
		e.WriteString(v.Key)
		encodeChildren(e, v.Children)
	}
}

func encodeChildren(e *Encoder, children []*vdom.VNode) {
	n := 0
	for _, c := range children {
		if c != nil {
			n++
		}
	}
	e.WriteUvarint(uint64(n))
	for _, c := range children {
		if c != nil {
			EncodeVNode(e, c)
		}
	}
}

// EncodeValue writes an attribute value into e.
func EncodeValue(e *Encoder, v vdom.Value) {
	e.WriteByte(byte(v.Kind))
	switch v.Kind {
	case vdom.ValueString:
		e.WriteString(v.Str)
	case vdom.ValueBool:
		e.WriteBool(v.Bool)
	case vdom.ValueNumber:
		e.WriteFloat64(v.Num)
	case vdom.ValueListener:
		event := ""
		if v.Listener != nil {
			event = v.Listener.Event
		}
		e.WriteString(event)
	case vdom.ValueStyle:
		e.WriteUvarint(uint64(len(v.Style)))
		for _, p := range v.Style {
			e.WriteString(p.Name)
			e.WriteString(p.Value)
		}
	}
}

// DecodeVNode reads a tree written by EncodeVNode.
func DecodeVNode(d *Decoder) (*vdom.VNode, error) {
	return decodeVNode(d, newDepthContext(MaxVNodeDepth))
}

func decodeVNode(d *Decoder, dc *depthContext) (*vdom.VNode, error) {
	if err := dc.enter(); err != nil {
		return nil, err
	}
	defer dc.leave()

	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == nullNode {
		return nil, nil
	}
	v := &vdom.VNode{Kind: vdom.VKind(b)}
	switch v.Kind {
	case vdom.KindText, vdom.KindComment:
		v.Text, err = d.ReadString()
		return v, err
	case vdom.KindElement:
		if v.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}
		if v.Namespace, err = d.ReadString(); err != nil {
			return nil, err
		}
		if v.Key, err = d.ReadString(); err != nil {
			return nil, err
		}
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			name, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := DecodeValue(d)
			if err != nil {
				return nil, err
			}
			v.Attrs = append(v.Attrs, vdom.Attr{Key: name, Value: val})
		}
	case vdom.KindFragment:
		if v.Key, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("E031").WithDetailf("node kind 0x%02x", b)
	}

	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		c, err := decodeVNode(d, dc)
		if err != nil {
			return nil, err
		}
		if c != nil {
			v.Children = append(v.Children, c)
		}
	}
	return v, nil
}

// DecodeValue reads an attribute value written by EncodeValue. Listener
// values come back with their event type and no handler.
func DecodeValue(d *Decoder) (vdom.Value, error) {
	b, err := d.ReadByte()
	if err != nil {
		return vdom.Value{}, err
	}
	switch vdom.ValueKind(b) {
	case vdom.ValueString:
		s, err := d.ReadString()
		return vdom.StringValue(s), err
	case vdom.ValueBool:
		v, err := d.ReadBool()
		return vdom.BoolValue(v), err
	case vdom.ValueNumber:
		n, err := d.ReadFloat64()
		return vdom.NumberValue(n), err
	case vdom.ValueListener:
		event, err := d.ReadString()
		if err != nil {
			return vdom.Value{}, err
		}
		return vdom.ListenerValue(&vdom.Listener{Event: event}), nil
	case vdom.ValueStyle:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return vdom.Value{}, err
		}
		props := make([]vdom.StyleProp, 0, count)
		for i := 0; i < count; i++ {
			name, err := d.ReadString()
			if err != nil {
				return vdom.Value{}, err
			}
			value, err := d.ReadString()
			if err != nil {
				return vdom.Value{}, err
			}
			props = append(props, vdom.StyleProp{Name: name, Value: value})
		}
		return vdom.StyleValue(props...), nil
	}
	return vdom.Value{}, errors.New("E031").WithDetailf("value kind 0x%02x", b)
}
