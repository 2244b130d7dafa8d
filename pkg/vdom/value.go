package vdom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates attribute values.
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueBool
	ValueNumber
	ValueListener
	ValueStyle
)

// String returns the string representation of the ValueKind.
func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "String"
	case ValueBool:
		return "Bool"
	case ValueNumber:
		return "Number"
	case ValueListener:
		return "Listener"
	case ValueStyle:
		return "Style"
	default:
		return "Unknown"
	}
}

// Value is an attribute value. Only the field matching Kind is meaningful.
type Value struct {
	Kind     ValueKind
	Str      string
	Bool     bool
	Num      float64
	Listener *Listener
	Style    []StyleProp
}

// StyleProp is one property of a style mapping.
type StyleProp struct {
	Name  string
	Value string
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }

// ListenerValue wraps an event listener.
func ListenerValue(l *Listener) Value { return Value{Kind: ValueListener, Listener: l} }

// StyleValue wraps a style mapping. Duplicate property names keep the first
// position and the last value.
func StyleValue(props ...StyleProp) Value {
	out := make([]StyleProp, 0, len(props))
	for _, p := range props {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name {
				out[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return Value{Kind: ValueStyle, Style: out}
}

// Equal reports whether two values are the same. Listener values compare by
// identity: two distinct *Listener are never equal even when they wrap the
// same function.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueBool:
		return v.Bool == o.Bool
	case ValueNumber:
		return v.Num == o.Num || (math.IsNaN(v.Num) && math.IsNaN(o.Num))
	case ValueListener:
		return v.Listener == o.Listener
	case ValueStyle:
		if len(v.Style) != len(o.Style) {
			return false
		}
		for i := range v.Style {
			if v.Style[i] != o.Style[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String returns the value as it is written to a host attribute.
// Bool values render as "" when true; callers remove the attribute when false.
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueBool:
		if v.Bool {
			return ""
		}
		return "false"
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueListener:
		if v.Listener == nil {
			return ""
		}
		return v.Listener.Event
	case ValueStyle:
		var b strings.Builder
		for i, p := range v.Style {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(p.Name)
			b.WriteString(": ")
			b.WriteString(p.Value)
		}
		return b.String()
	}
	return ""
}

// Truthy reports whether the value would be present as a host attribute.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueListener:
		return v.Listener != nil
	}
	return true
}

// toValue converts a loosely typed Go value into a Value.
func toValue(x any) Value {
	switch val := x.(type) {
	case Value:
		return val
	case string:
		return StringValue(val)
	case bool:
		return BoolValue(val)
	case int:
		return NumberValue(float64(val))
	case int64:
		return NumberValue(float64(val))
	case float64:
		return NumberValue(val)
	case float32:
		return NumberValue(float64(val))
	case *Listener:
		return ListenerValue(val)
	case Handler:
		return ListenerValue(&Listener{Handler: val})
	case func(*Event):
		return ListenerValue(&Listener{Handler: val})
	case []StyleProp:
		return StyleValue(val...)
	case nil:
		return StringValue("")
	default:
		return StringValue(fmt.Sprint(val))
	}
}
