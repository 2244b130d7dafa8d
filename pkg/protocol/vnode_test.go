package protocol

import (
	"testing"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func roundTripVNode(t *testing.T, v *vdom.VNode) *vdom.VNode {
	t.Helper()
	e := NewEncoder()
	EncodeVNode(e, v)
	d := NewDecoder(e.Bytes())
	out, err := DecodeVNode(d)
	if err != nil {
		t.Fatalf("DecodeVNode: %v", err)
	}
	if !d.EOF() {
		t.Fatalf("%d bytes left after DecodeVNode", d.Remaining())
	}
	return out
}

func TestVNodeRoundTrip(t *testing.T) {
	tree := vdom.Div(
		vdom.ID("app"),
		vdom.Class("a", "b"),
		vdom.Disabled(),
		vdom.DisabledIf(false),
		vdom.TabIndex(2),
		vdom.Styles("color", "red", "margin", "0"),
		vdom.Ul(
			vdom.Li(vdom.Key("x"), "one"),
			vdom.Li(vdom.Key("y"), "two"),
		),
		vdom.Comment("marker"),
		vdom.Fragment(vdom.Span("in fragment")),
		vdom.Svg(vdom.El("circle", vdom.AttrOf("r", 4))),
	)
	out := roundTripVNode(t, tree)
	if !vdom.Equal(tree, out) {
		t.Errorf("round trip mismatch:\n%s\nwant\n%s", vdom.Dump(out), vdom.Dump(tree))
	}
	if out.Children[len(out.Children)-1].Namespace != vdom.NamespaceSVG {
		t.Error("namespace lost")
	}
}

func TestVNodeNil(t *testing.T) {
	if out := roundTripVNode(t, nil); out != nil {
		t.Errorf("got %v, want nil", out)
	}
}

func TestVNodeListenerKeepsEventOnly(t *testing.T) {
	tree := vdom.Button(vdom.OnClick(func(*vdom.Event) {}), "go")
	out := roundTripVNode(t, tree)
	v, ok := out.Attrs.Get("onclick")
	if !ok || v.Kind != vdom.ValueListener {
		t.Fatalf("onclick = %+v, %v", v, ok)
	}
	if v.Listener.Event != "click" || v.Listener.Handler != nil {
		t.Errorf("listener = %+v, want event only", v.Listener)
	}
}

func TestDecodeVNodeDepthLimit(t *testing.T) {
	tree := vdom.Div()
	cur := tree
	for i := 0; i < MaxVNodeDepth+1; i++ {
		child := vdom.Div()
		cur.Children = append(cur.Children, child)
		cur = child
	}
	e := NewEncoder()
	EncodeVNode(e, tree)
	if _, err := DecodeVNode(NewDecoder(e.Bytes())); err != ErrMaxDepthExceeded {
		t.Errorf("err = %v, want ErrMaxDepthExceeded", err)
	}
}

func TestDecodeVNodeUnknownKind(t *testing.T) {
	_, err := DecodeVNode(NewDecoder([]byte{0x33}))
	if !errors.IsCode(err, "E031") {
		t.Errorf("err = %v, want E031", err)
	}
	_, err = DecodeValue(NewDecoder([]byte{0x33}))
	if !errors.IsCode(err, "E031") {
		t.Errorf("value err = %v, want E031", err)
	}
}
