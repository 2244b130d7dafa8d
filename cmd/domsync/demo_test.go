package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/program"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type demoHarness struct {
	t    *testing.T
	doc  *memdoc.Document
	prog *program.Program
}

func mountDemo(t *testing.T) *demoHarness {
	t.Helper()
	doc := memdoc.New()
	app := &demoApp{}
	prog := program.New(doc, doc.Body(), app,
		program.WithLogger(quietLogger),
		program.WithStyles(program.NewStyles(doc.Head())))
	app.render = prog.RequestRender
	require.NoError(t, prog.Start())
	t.Cleanup(func() { prog.Close() })
	return &demoHarness{t: t, doc: doc, prog: prog}
}

func (h *demoHarness) fire(attr, value string, ev host.Event) {
	h.t.Helper()
	n := memdoc.Find(h.doc.Body(), attr, value)
	require.NotNil(h.t, n, "no element with %s=%q", attr, value)
	require.Equal(h.t, 1, h.doc.Fire(n, ev))
	require.NoError(h.t, h.prog.RenderNow(context.Background()))
}

func (h *demoHarness) html() string {
	return memdoc.HTML(h.doc.Body())
}

func (h *demoHarness) addTodo(text string) {
	h.t.Helper()
	h.fire("id", "draft", host.Event{Type: "input", Value: text})
	h.fire("id", "add", host.Event{Type: "submit"})
}

func TestDemoCounter(t *testing.T) {
	h := mountDemo(t)
	assert.Contains(t, h.html(), `<span id="count">0</span>`)

	h.fire("id", "inc", host.Event{Type: "click"})
	h.fire("id", "inc", host.Event{Type: "click"})
	h.fire("id", "dec", host.Event{Type: "click"})
	assert.Contains(t, h.html(), `<span id="count">1</span>`)
}

func TestDemoGoesLiveAfterMount(t *testing.T) {
	h := mountDemo(t)
	assert.Contains(t, h.html(), `<p id="status">connecting</p>`)
	assert.Contains(t, memdoc.HTML(h.doc.Head()), "li.done span")

	require.NoError(t, h.prog.RenderNow(context.Background()))
	assert.Contains(t, h.html(), `<p id="status">live</p>`)
	assert.Len(t, h.doc.Head().Children, 1)
}

func TestDemoTodos(t *testing.T) {
	h := mountDemo(t)
	assert.Contains(t, h.html(), "0 of 0 left")
	assert.NotContains(t, h.html(), `id="reverse"`)

	h.addTodo("milk")
	assert.Contains(t, h.html(), "<span>milk</span>")
	assert.Contains(t, h.html(), `value=""`, "draft is cleared")

	h.addTodo("  ")
	assert.Contains(t, h.html(), "1 of 1 left")

	h.addTodo("eggs")
	out := h.html()
	assert.Less(t, strings.Index(out, "milk"), strings.Index(out, "eggs"))

	h.fire("id", "reverse", host.Event{Type: "click"})
	out = h.html()
	assert.Less(t, strings.Index(out, "eggs"), strings.Index(out, "milk"))

	h.fire("type", "checkbox", host.Event{Type: "change", Checked: true})
	assert.Contains(t, h.html(), "1 of 2 left")
	assert.Contains(t, h.html(), `<li class="done">`)

	h.fire("class", "remove", host.Event{Type: "click"})
	out = h.html()
	assert.NotContains(t, out, "eggs")
	assert.Contains(t, out, "1 of 1 left")
}

func TestDemoReverseKeepsLiveNodes(t *testing.T) {
	h := mountDemo(t)
	h.addTodo("a")
	h.addTodo("b")
	first := memdoc.Find(h.doc.Body(), "type", "checkbox")

	h.fire("id", "reverse", host.Event{Type: "click"})
	h.fire("id", "reverse", host.Event{Type: "click"})
	assert.Same(t, first, memdoc.Find(h.doc.Body(), "type", "checkbox"))
}
