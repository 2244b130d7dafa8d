package vdom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// JSON form of a tree, used by tooling:
//
//	{"tag": "ul", "attrs": {"class": "list", "onclick": null}, "children": [
//	    {"tag": "li", "key": "a", "children": [{"text": "A"}]},
//	    {"comment": "end"}
//	]}
//
// Attribute values are strings, booleans, numbers, objects (style mappings)
// or null for listener slots. Attribute order is preserved.

type wireNode struct {
	Tag       string    `json:"tag,omitempty"`
	Namespace string    `json:"ns,omitempty"`
	Key       string    `json:"key,omitempty"`
	Attrs     Attrs     `json:"attrs,omitempty"`
	Children  []*VNode  `json:"children,omitempty"`
	Text      *string   `json:"text,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	Fragment  *[]*VNode `json:"fragment,omitempty"`
}

// ErrInvalidJSONNode is returned for objects that describe no node kind.
var ErrInvalidJSONNode = errors.New("vdom: node needs one of tag, text, comment or fragment")

// ParseJSON decodes a tree from its JSON form.
func ParseJSON(data []byte) (*VNode, error) {
	var v VNode
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// MarshalJSON implements json.Marshaler.
func (v *VNode) MarshalJSON() ([]byte, error) {
	var w wireNode
	switch v.Kind {
	case KindText:
		w.Text = &v.Text
	case KindComment:
		w.Comment = &v.Text
	case KindFragment:
		children := v.Children
		if children == nil {
			children = []*VNode{}
		}
		w.Fragment = &children
	default:
		w.Tag = v.Tag
		w.Namespace = v.Namespace
		w.Key = v.Key
		w.Attrs = v.Attrs
		w.Children = v.Children
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VNode) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Text != nil:
		*v = VNode{Kind: KindText, Text: *w.Text}
	case w.Comment != nil:
		*v = VNode{Kind: KindComment, Text: *w.Comment}
	case w.Fragment != nil:
		*v = VNode{Kind: KindFragment, Children: *w.Fragment}
	case w.Tag != "":
		*v = VNode{
			Kind:      KindElement,
			Tag:       w.Tag,
			Namespace: w.Namespace,
			Key:       w.Key,
			Attrs:     w.Attrs,
			Children:  w.Children,
		}
	default:
		return ErrInvalidJSONNode
	}
	return nil
}

// MarshalJSON implements json.Marshaler, keeping attribute order.
func (as Attrs) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, a := range as {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(a.Key))
		b.WriteByte(':')
		switch a.Value.Kind {
		case ValueString:
			enc, err := json.Marshal(a.Value.Str)
			if err != nil {
				return nil, err
			}
			b.Write(enc)
		case ValueBool:
			b.WriteString(strconv.FormatBool(a.Value.Bool))
		case ValueNumber:
			b.WriteString(a.Value.String())
		case ValueListener:
			b.WriteString("null")
		case ValueStyle:
			b.WriteByte('{')
			for j, p := range a.Value.Style {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(strconv.Quote(p.Name))
				b.WriteByte(':')
				b.WriteString(strconv.Quote(p.Value))
			}
			b.WriteByte('}')
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping attribute order.
func (as *Attrs) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var out Attrs
	err := eachMember(data, func(name string, raw json.RawMessage) error {
		v, err := decodeValue(name, raw)
		if err != nil {
			return err
		}
		out = out.Set(name, v)
		return nil
	})
	if err != nil {
		return err
	}
	*as = out
	return nil
}

func decodeValue(name string, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("vdom: empty value for attribute %q", name)
	}
	switch raw[0] {
	case 'n':
		if !IsListenerName(name) {
			return Value{}, fmt.Errorf("vdom: null is only valid for listener attributes, got %q", name)
		}
		return ListenerValue(&Listener{Event: EventType(name)}), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case '{':
		var props []StyleProp
		err := eachMember(raw, func(prop string, pv json.RawMessage) error {
			var s string
			if err := json.Unmarshal(pv, &s); err != nil {
				return fmt.Errorf("vdom: style property %q: %w", prop, err)
			}
			props = append(props, StyleProp{Name: prop, Value: s})
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return StyleValue(props...), nil
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("vdom: attribute %q: %w", name, err)
		}
		return NumberValue(f), nil
	}
}

// eachMember walks the members of a JSON object in document order.
func eachMember(data []byte, fn func(name string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("vdom: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("vdom: expected member name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(name, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
