package vdom

import (
	"fmt"
	"strings"
)

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value Value
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Attrs is an ordered attribute mapping with unique names.
type Attrs []Attr

// Get returns the value stored under name.
func (as Attrs) Get(name string) (Value, bool) {
	for _, a := range as {
		if a.Key == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether name is present.
func (as Attrs) Has(name string) bool {
	_, ok := as.Get(name)
	return ok
}

// Set stores value under name. An existing entry keeps its position and
// takes the new value (last write wins).
func (as Attrs) Set(name string, value Value) Attrs {
	for i := range as {
		if as[i].Key == name {
			as[i].Value = value
			return as
		}
	}
	return append(as, Attr{Key: name, Value: value})
}

// Delete removes name if present.
func (as Attrs) Delete(name string) Attrs {
	for i := range as {
		if as[i].Key == name {
			return append(as[:i], as[i+1:]...)
		}
	}
	return as
}

// Equal reports whether both mappings hold the same names with equal
// values, in any order.
func (as Attrs) Equal(other Attrs) bool {
	if len(as) != len(other) {
		return false
	}
	for i := range as {
		if i < len(other) && as[i].Key == other[i].Key {
			if !as[i].Value.Equal(other[i].Value) {
				return false
			}
			continue
		}
		v, ok := other.Get(as[i].Key)
		if !ok || !as[i].Value.Equal(v) {
			return false
		}
	}
	return true
}

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: toValue(value)}
}

// AttrOf creates an attribute with an arbitrary name.
func AttrOf(key string, value any) Attr { return attr(key, value) }

// Identity attributes

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// ClassIf adds a class only when condition is true.
func ClassIf(condition bool, class string) Attr {
	if condition {
		return Class(class)
	}
	return Attr{}
}

// StyleAttr sets the style attribute from a raw string.
func StyleAttr(style string) Attr { return attr("style", style) }

// Styles sets the style attribute from a property mapping.
// Arguments alternate between property names and values.
func Styles(pairs ...string) Attr {
	props := make([]StyleProp, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		props = append(props, StyleProp{Name: pairs[i], Value: pairs[i+1]})
	}
	return Attr{Key: "style", Value: StyleValue(props...)}
}

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Accessibility attributes

// Role sets the role attribute.
func Role(role string) Attr { return attr("role", role) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// AriaHidden sets the aria-hidden attribute.
func AriaHidden(hidden bool) Attr { return attr("aria-hidden", hidden) }

// AriaExpanded sets the aria-expanded attribute.
func AriaExpanded(expanded bool) Attr { return attr("aria-expanded", expanded) }

// TabIndex sets the tabindex attribute.
func TabIndex(index int) Attr { return attr("tabindex", index) }

// Hidden sets the hidden attribute.
func Hidden() Attr { return attr("hidden", true) }

// TitleAttr sets the title attribute (named to avoid conflict with Title element).
func TitleAttr(title string) Attr { return attr("title", title) }

// Links

func Href(url string) Attr      { return attr("href", url) }
func Target(target string) Attr { return attr("target", target) }
func Rel(rel string) Attr       { return attr("rel", rel) }

// Form attributes

func Name(name string) Attr        { return attr("name", name) }
func ValueAttr(value string) Attr  { return attr("value", value) }
func Type(t string) Attr           { return attr("type", t) }
func Placeholder(text string) Attr { return attr("placeholder", text) }
func For(id string) Attr           { return attr("for", id) }
func Disabled() Attr               { return attr("disabled", true) }
func DisabledIf(cond bool) Attr    { return attr("disabled", cond) }
func Readonly() Attr               { return attr("readonly", true) }
func Required() Attr               { return attr("required", true) }
func Checked() Attr                { return attr("checked", true) }
func CheckedIf(cond bool) Attr     { return attr("checked", cond) }
func Selected() Attr               { return attr("selected", true) }
func MaxLength(n int) Attr         { return attr("maxlength", n) }
func Min(value float64) Attr       { return attr("min", value) }
func Max(value float64) Attr       { return attr("max", value) }
func Step(value float64) Attr      { return attr("step", value) }

// Autofocus marks an element to be focused once it is mounted.
func Autofocus() Attr { return attr("autofocus", true) }

// Media attributes

func Src(url string) Attr  { return attr("src", url) }
func Alt(text string) Attr { return attr("alt", text) }
func Width(w int) Attr     { return attr("width", w) }
func Height(h int) Attr    { return attr("height", h) }

// Table attributes

func Colspan(n int) Attr { return attr("colspan", n) }
func Rowspan(n int) Attr { return attr("rowspan", n) }

// Key creates a key attribute for reconciliation.
// The key is converted to a string using fmt.Sprintf.
func Key(key any) Attr {
	return Attr{Key: "key", Value: StringValue(fmt.Sprintf("%v", key))}
}
