package dom

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func newTestPatcher(t *testing.T, opts ...Option) (*Patcher, *memdoc.Document) {
	t.Helper()
	doc := memdoc.New()
	return NewPatcher(doc, doc.Body(), opts...), doc
}

// render applies the transition prev → next and checks the live document
// serializes exactly like next.
func render(t *testing.T, p *Patcher, doc *memdoc.Document, prev, next *vdom.VNode) {
	t.Helper()
	require.NoError(t, p.Apply(vdom.Diff(prev, next)), "Diff:\n%s", patchList(vdom.Diff(prev, next)))
	require.Equal(t, memdoc.Markup(next), memdoc.HTML(doc.Body()))
}

func patchList(patches []vdom.Patch) string {
	lines := make([]string, len(patches))
	for i, p := range patches {
		lines[i] = p.String()
	}
	return strings.Join(lines, "\n")
}

func liveCount(tree *vdom.VNode) int {
	n := 0
	var walk func([]*vdom.VNode)
	walk = func(group []*vdom.VNode) {
		for _, v := range vdom.Flatten(group) {
			n++
			walk(v.Children)
		}
	}
	walk(vdom.Roots(tree))
	return n
}

func TestMount(t *testing.T) {
	p, doc := newTestPatcher(t)
	tree := vdom.Div(vdom.ID("app"),
		vdom.H1("Title"),
		vdom.Ul(vdom.Li("one"), vdom.Li("two")),
		vdom.Comment("end"),
	)

	require.NoError(t, p.Mount(tree))
	assert.True(t, p.Mounted())
	assert.Equal(t, `<div id="app"><h1>Title</h1><ul><li>one</li><li>two</li></ul><!--end--></div>`, memdoc.HTML(doc.Body()))
	assert.Equal(t, liveCount(tree), p.Nodes().Len())
	assert.Equal(t, liveCount(tree), p.Stats().Created)

	err := p.Mount(tree)
	assert.True(t, errors.IsCode(err, "E005"), "second Mount = %v, want E005", err)
}

func TestMountFragmentAndNil(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Fragment(vdom.P("a"), vdom.Fragment(vdom.P("b")), "c")))
	assert.Equal(t, "<p>a</p><p>b</p>c", memdoc.HTML(doc.Body()))
	assert.Equal(t, 3, len(p.Nodes().Root().Children()))

	empty, emptyDoc := newTestPatcher(t)
	require.NoError(t, empty.Mount(nil))
	assert.True(t, empty.Mounted())
	assert.Equal(t, "", memdoc.HTML(emptyDoc.Body()))
}

func TestApplyBeforeMount(t *testing.T) {
	p, _ := newTestPatcher(t)
	err := p.Apply([]vdom.Patch{{Op: vdom.PatchSetText, Path: vdom.Path{0}, Text: "x"}})
	assert.True(t, errors.IsCode(err, "E003"), "err = %v, want E003", err)
}

func TestUnmount(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Fragment(vdom.Div("a"), vdom.Div("b"))))
	first, _ := p.Nodes().Resolve(vdom.Path{0})

	require.NoError(t, p.Unmount())
	assert.False(t, p.Mounted())
	assert.Equal(t, "", memdoc.HTML(doc.Body()))
	assert.Equal(t, 0, p.Nodes().Len())
	_, found := p.Nodes().Lookup(first.Handle)
	assert.False(t, found, "handle of an unmounted node still resolves")

	require.NoError(t, p.Mount(vdom.Span("again")))
	assert.Equal(t, "<span>again</span>", memdoc.HTML(doc.Body()))
}

func TestUnmountCollectsHostErrors(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Fragment(vdom.Div(), vdom.Div())))
	doc.FailNext("RemoveChild", fmt.Errorf("gone"))

	err := p.Unmount()
	assert.True(t, errors.IsCode(err, "E010"), "err = %v, want E010", err)
	assert.Equal(t, 0, p.Nodes().Len())
	assert.False(t, p.Mounted())
}

func TestApplyTextAndAttributes(t *testing.T) {
	p, doc := newTestPatcher(t)
	prev := vdom.Div(vdom.Class("a"), vdom.ID("x"), vdom.Disabled(), "hello")
	require.NoError(t, p.Mount(prev))

	next := vdom.Div(vdom.Class("b"), vdom.DisabledIf(false), vdom.Data("n", "1"), "world")
	render(t, p, doc, prev, next)

	div := doc.Body().Children[0]
	_, hasID := div.Attr("id")
	assert.False(t, hasID)
	_, hasDisabled := div.Attr("disabled")
	assert.False(t, hasDisabled, "false boolean must remove the attribute")
	assert.Equal(t, "world", div.Children[0].Text)
}

func TestBooleanTrueRendersEmptyValue(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Input(vdom.Checked())))
	v, ok := doc.Body().Children[0].Attr("checked")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestKeyedMovesKeepLiveNodes(t *testing.T) {
	p, doc := newTestPatcher(t)
	item := func(k string) *vdom.VNode { return vdom.Li(vdom.Key(k), k) }
	prev := vdom.Ul(item("a"), item("b"), item("c"), item("d"))
	require.NoError(t, p.Mount(prev))

	ul := doc.Body().Children[0]
	byText := make(map[string]*memdoc.Node)
	for _, li := range ul.Children {
		byText[li.Children[0].Text] = li
	}
	created := doc.Count("CreateElement")

	next := vdom.Ul(item("d"), item("b"), item("a"), item("c"))
	render(t, p, doc, prev, next)

	assert.Equal(t, created, doc.Count("CreateElement"), "reordering keyed children created elements")
	for i, k := range []string{"d", "b", "a", "c"} {
		assert.Same(t, byText[k], ul.Children[i], "child %d is not the original %q node", i, k)
	}
	assert.Greater(t, p.Stats().Moved, 0)
}

func TestKeyedInsertAndRemove(t *testing.T) {
	p, doc := newTestPatcher(t)
	item := func(k string) *vdom.VNode { return vdom.Li(vdom.Key(k), k) }
	prev := vdom.Ul(item("a"), item("b"), item("c"))
	require.NoError(t, p.Mount(prev))
	b, _ := p.Nodes().Resolve(vdom.Path{0, 1})

	next := vdom.Ul(item("x"), item("c"), item("a"))
	render(t, p, doc, prev, next)

	_, found := p.Nodes().Lookup(b.Handle)
	assert.False(t, found, "removed node still registered")
	assert.Equal(t, liveCount(next), p.Nodes().Len())
}

func TestReplaceNode(t *testing.T) {
	p, doc := newTestPatcher(t)
	prev := vdom.Div(vdom.Span("a"), vdom.Text("b"))
	require.NoError(t, p.Mount(prev))
	span, _ := p.Nodes().Resolve(vdom.Path{0, 0})

	next := vdom.Div(vdom.P("a"), vdom.Comment("b"))
	render(t, p, doc, prev, next)

	_, found := p.Nodes().Lookup(span.Handle)
	assert.False(t, found)
	assert.Equal(t, liveCount(next), p.Nodes().Len())
}

func TestNodeMapPaths(t *testing.T) {
	p, _ := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Div(vdom.P("a"), vdom.P(vdom.Span("b")))))

	span, ok := p.Nodes().Resolve(vdom.Path{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, "span", span.Tag)
	assert.Equal(t, vdom.Path{0, 1, 0}, span.Path())
	assert.Equal(t, "p", span.Parent().Tag)

	got, ok := p.Nodes().Lookup(span.Handle)
	require.True(t, ok)
	assert.Same(t, span, got)

	_, ok = p.Nodes().Resolve(vdom.Path{0, 5})
	assert.False(t, ok)

	var tags []string
	p.Nodes().Walk(func(n *LiveNode) {
		if n.Kind == vdom.KindElement {
			tags = append(tags, n.Tag)
		}
	})
	assert.Equal(t, []string{"div", "p", "p", "span"}, tags)
}

func TestListenersStayOffTheHost(t *testing.T) {
	var hooked []string
	p, doc := newTestPatcher(t, WithListenHook(func(eventType string) error {
		hooked = append(hooked, eventType)
		return nil
	}))

	first := func(*vdom.Event) {}
	prev := vdom.Button(vdom.OnClick(first), "go")
	require.NoError(t, p.Mount(prev))

	btn := doc.Body().Children[0]
	assert.Empty(t, btn.Attrs, "listener leaked into host attributes")
	assert.Equal(t, []string{"click"}, hooked)

	live, _ := p.Nodes().Resolve(vdom.Path{0})
	old := live.Listeners["click"]
	require.NotNil(t, old)

	next := vdom.Button(vdom.OnClick(first), "go")
	render(t, p, doc, prev, next)
	assert.NotSame(t, old, live.Listeners["click"], "fresh listener not installed")

	removed := vdom.Button("go")
	render(t, p, doc, next, removed)
	assert.NotContains(t, live.Listeners, "click")
	assert.Equal(t, 0, doc.Count("RemoveAttribute"))
	assert.Equal(t, 0, doc.Count("SetAttribute"))
}

func TestListenHookFailure(t *testing.T) {
	p, _ := newTestPatcher(t, WithListenHook(func(string) error {
		return fmt.Errorf("no root")
	}))
	err := p.Mount(vdom.Button(vdom.OnClick(func(*vdom.Event) {})))
	assert.True(t, errors.IsCode(err, "E011"), "err = %v, want E011", err)
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch vdom.Patch
		code  string
	}{
		{"missing path", vdom.Patch{Op: vdom.PatchRemoveNode, Path: vdom.Path{0, 9}}, "E001"},
		{"text on element", vdom.Patch{Op: vdom.PatchSetText, Path: vdom.Path{0}, Text: "x"}, "E002"},
		{"attribute on text", vdom.Patch{Op: vdom.PatchSetAttribute, Path: vdom.Path{0, 0}, Key: "id", Value: vdom.StringValue("x")}, "E002"},
		{"remove container", vdom.Patch{Op: vdom.PatchRemoveNode, Path: vdom.Path{}}, "E002"},
		{"insert out of range", vdom.Patch{Op: vdom.PatchInsertChildren, Path: vdom.Path{0}, Index: 7, Nodes: []*vdom.VNode{vdom.Text("x")}}, "E001"},
		{"insert into text", vdom.Patch{Op: vdom.PatchInsertChildren, Path: vdom.Path{0, 0}, Nodes: []*vdom.VNode{vdom.Text("x")}}, "E002"},
		{"move to missing parent", vdom.Patch{Op: vdom.PatchMoveNode, Path: vdom.Path{0, 0}, To: vdom.Path{3, 0}}, "E001"},
		{"move into itself", vdom.Patch{Op: vdom.PatchMoveNode, Path: vdom.Path{0}, To: vdom.Path{0, 0}}, "E001"},
		{"replace with fragment", vdom.Patch{Op: vdom.PatchReplaceNode, Path: vdom.Path{0}, Node: vdom.Fragment()}, "E005"},
		{"unknown op", vdom.Patch{Op: 0x7f, Path: vdom.Path{0}}, "E005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, doc := newTestPatcher(t)
			tree := vdom.Div("text")
			require.NoError(t, p.Mount(tree))

			err := p.Apply([]vdom.Patch{tt.patch})
			assert.True(t, errors.IsCode(err, tt.code), "err = %v, want %s", err, tt.code)
			assert.Equal(t, memdoc.Markup(tree), memdoc.HTML(doc.Body()), "failed patch changed the document")
			assert.Equal(t, liveCount(tree), p.Nodes().Len())
		})
	}
}

func TestFailureStopsBatch(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Div(vdom.P("a"), vdom.P("b"))))

	patches := []vdom.Patch{
		{Op: vdom.PatchSetText, Path: vdom.Path{0, 0, 0}, Text: "A"},
		{Op: vdom.PatchRemoveNode, Path: vdom.Path{0, 4}},
		{Op: vdom.PatchSetText, Path: vdom.Path{0, 1, 0}, Text: "B"},
	}
	err := p.Apply(patches)
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "E001", e.Code)
	assert.Equal(t, "RemoveNode", e.Op)
	assert.Equal(t, "/0/4", e.Path)
	assert.Equal(t, "<div><p>A</p><p>b</p></div>", memdoc.HTML(doc.Body()))
}

func TestHostFailure(t *testing.T) {
	p, doc := newTestPatcher(t)
	prev := vdom.Ul(vdom.Li("a"))
	require.NoError(t, p.Mount(prev))
	boom := fmt.Errorf("host exploded")
	doc.FailNext("InsertChild", boom)

	err := p.Apply(vdom.Diff(prev, vdom.Ul(vdom.Li("a"), vdom.Li("b"))))
	assert.True(t, errors.IsCode(err, "E010"), "err = %v, want E010", err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "<ul><li>a</li></ul>", memdoc.HTML(doc.Body()))
	assert.Equal(t, 3, p.Nodes().Len())
}

func TestReentrantApplyIsQueued(t *testing.T) {
	var p *Patcher
	var order []string
	p, doc := newTestPatcher(t, WithListenHook(func(string) error {
		order = append(order, "hook")
		if p.Applying() {
			err := p.Apply([]vdom.Patch{{Op: vdom.PatchSetAttribute, Path: vdom.Path{0}, Key: "data-late", Value: vdom.StringValue("1")}})
			if err != nil {
				return err
			}
			p.Defer(func() { order = append(order, "deferred") })
		}
		return nil
	}))
	p.Defer(func() { order = append(order, "idle") })

	require.NoError(t, p.Mount(vdom.Button(vdom.OnClick(func(*vdom.Event) {}))))
	assert.Equal(t, []string{"idle", "hook", "deferred"}, order)
	v, ok := doc.Body().Children[0].Attr("data-late")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.False(t, p.Applying())
	assert.Equal(t, 2, p.Stats().Batches)
}

func TestQueuedBatchSkippedAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var p *Patcher
	ran := false
	p, doc := newTestPatcher(t, WithLogger(logger), WithListenHook(func(string) error {
		_ = p.Apply([]vdom.Patch{{Op: vdom.PatchSetAttribute, Path: vdom.Path{0}, Key: "id", Value: vdom.StringValue("late")}})
		p.Defer(func() { ran = true })
		return nil
	}))
	require.NoError(t, p.Mount(vdom.Div()))

	err := p.Apply([]vdom.Patch{
		{Op: vdom.PatchSetAttribute, Path: vdom.Path{0}, Key: "onclick", Value: vdom.ListenerValue(&vdom.Listener{Event: "click"})},
		{Op: vdom.PatchRemoveNode, Path: vdom.Path{9}},
	})
	assert.True(t, errors.IsCode(err, "E001"), "err = %v, want E001", err)
	_, ok := doc.Body().Children[0].Attr("id")
	assert.False(t, ok, "queued batch ran after a failure")
	assert.True(t, ran, "deferred callback must still run")
	assert.Contains(t, buf.String(), "skipping queued batch")
}

func TestAutofocus(t *testing.T) {
	p, doc := newTestPatcher(t)
	prev := vdom.Form(vdom.Input(vdom.Name("a")))
	require.NoError(t, p.Mount(prev))
	assert.Nil(t, doc.Focused())

	next := vdom.Form(vdom.Input(vdom.Name("a")), vdom.Input(vdom.Name("b"), vdom.Autofocus()))
	render(t, p, doc, prev, next)

	require.NotNil(t, doc.Focused())
	name, _ := doc.Focused().Attr("name")
	assert.Equal(t, "b", name)
	assert.Equal(t, 1, p.Stats().Focused)
}

func TestAutofocusSkipsRemovedNodes(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Div()))

	err := p.Apply([]vdom.Patch{
		{Op: vdom.PatchInsertChildren, Path: vdom.Path{0}, Index: 0, Nodes: []*vdom.VNode{
			vdom.Input(vdom.Name("first"), vdom.Autofocus()),
			vdom.Input(vdom.Name("second"), vdom.Autofocus()),
		}},
		{Op: vdom.PatchRemoveNode, Path: vdom.Path{0, 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, doc.Focused())
	name, _ := doc.Focused().Attr("name")
	assert.Equal(t, "first", name)
}

func TestMoveAcrossParents(t *testing.T) {
	p, doc := newTestPatcher(t)
	require.NoError(t, p.Mount(vdom.Div(vdom.Ul(vdom.Li("a"), vdom.Li("b")), vdom.Ol())))
	li, _ := p.Nodes().Resolve(vdom.Path{0, 0, 1})

	err := p.Apply([]vdom.Patch{{Op: vdom.PatchMoveNode, Path: vdom.Path{0, 0, 1}, To: vdom.Path{0, 1, 0}}})
	require.NoError(t, err)
	assert.Equal(t, "<div><ul><li>a</li></ul><ol><li>b</li></ol></div>", memdoc.HTML(doc.Body()))
	assert.Equal(t, vdom.Path{0, 1, 0}, li.Path())
}

func randomTree(r *rand.Rand, depth int) *vdom.VNode {
	if depth == 0 || r.Intn(4) == 0 {
		if r.Intn(3) == 0 {
			return vdom.Comment(fmt.Sprint(r.Intn(2)))
		}
		return vdom.Text(fmt.Sprint(r.Intn(3)))
	}
	tags := []string{"div", "span", "section"}
	var args []any
	if r.Intn(2) == 0 {
		args = append(args, vdom.Class(fmt.Sprint(r.Intn(3))))
	}
	if r.Intn(3) == 0 {
		args = append(args, vdom.DisabledIf(r.Intn(2) == 0))
	}
	if r.Intn(2) == 0 {
		keys := []string{"a", "b", "c", "d", "e"}
		r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		for _, k := range keys[:r.Intn(len(keys)+1)] {
			args = append(args, vdom.Li(vdom.Key(k), randomTree(r, depth-1)))
		}
	} else {
		for i := r.Intn(4); i > 0; i-- {
			args = append(args, randomTree(r, depth-1))
		}
	}
	if r.Intn(5) == 0 {
		return vdom.Fragment(vdom.El(tags[r.Intn(len(tags))], args...), vdom.Text("f"))
	}
	return vdom.El(tags[r.Intn(len(tags))], args...)
}

func TestRandomRenderSequences(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for run := 0; run < 50; run++ {
		p, doc := newTestPatcher(t)
		prev := randomTree(r, 4)
		require.NoError(t, p.Mount(prev))
		require.Equal(t, memdoc.Markup(prev), memdoc.HTML(doc.Body()))

		for step := 0; step < 10; step++ {
			next := randomTree(r, 4)
			render(t, p, doc, prev, next)
			require.Equal(t, liveCount(next), p.Nodes().Len(), "NodeMap out of sync after step %d", step)
			prev = next
		}
	}
}
