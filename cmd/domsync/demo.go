package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/vango-dev/domsync/pkg/program"
	"github.com/vango-dev/domsync/pkg/remote"
	. "github.com/vango-dev/domsync/pkg/vdom"
)

// demoApp is the application served by the serve command: a counter and
// a keyed todo list.
type demoApp struct {
	render func()

	live   bool
	count  int
	draft  string
	todos  []todo
	nextID int
}

type todo struct {
	id   int
	text string
	done bool
}

func newDemoApp(s *remote.Session) program.Application {
	return &demoApp{render: s.RequestRender}
}

const demoStyle = `
#count { display: inline-block; min-width: 3rem; text-align: center; }
li.done span { text-decoration: line-through; color: #888; }
#status { color: #888; font-size: .8rem; }
`

// Init marks the session live once the first tree is on the client.
func (a *demoApp) Init() {
	a.live = true
	a.render()
}

// Style implements program.Styler.
func (a *demoApp) Style() string {
	return demoStyle
}

func (a *demoApp) update(fn func()) Handler {
	return func(*Event) {
		fn()
		a.render()
	}
}

func (a *demoApp) Render() *VNode {
	return Div(Class("demo"),
		H1("domsync"),
		P(ID("status"), IfElse(a.live, Text("live"), Text("connecting"))),
		Section(Class("counter"),
			Button(ID("dec"), OnClick(a.update(func() { a.count-- })), "-"),
			Span(ID("count"), strconv.Itoa(a.count)),
			Button(ID("inc"), OnClick(a.update(func() { a.count++ })), "+"),
		),
		Section(Class("todos"),
			Form(ID("add"), OnSubmit(a.update(a.add)),
				Input(ID("draft"), Type("text"), ValueAttr(a.draft), Placeholder("What needs doing?"),
					OnInput(func(e *Event) { a.draft = e.Value; a.render() }),
				),
				Button(Type("submit"), DisabledIf(strings.TrimSpace(a.draft) == ""), "Add"),
			),
			Ul(ID("todos"), Range(a.todos, a.renderTodo)),
			If(len(a.todos) > 1, Button(ID("reverse"), OnClick(a.update(a.reverse)), "Reverse")),
			P(ID("left"), Textf("%d of %d left", a.left(), len(a.todos))),
		),
	)
}

func (a *demoApp) renderTodo(t todo, _ int) *VNode {
	id := t.id
	return Li(Key(id), ClassIf(t.done, "done"),
		Input(Type("checkbox"), CheckedIf(t.done), OnChange(func(e *Event) {
			a.toggle(id, e.Checked)
			a.render()
		})),
		Span(t.text),
		Button(Class("remove"), OnClick(a.update(func() { a.remove(id) })), "x"),
	)
}

func (a *demoApp) add() {
	text := strings.TrimSpace(a.draft)
	if text == "" {
		return
	}
	a.nextID++
	a.todos = append(a.todos, todo{id: a.nextID, text: text})
	a.draft = ""
}

func (a *demoApp) toggle(id int, done bool) {
	for i := range a.todos {
		if a.todos[i].id == id {
			a.todos[i].done = done
		}
	}
}

func (a *demoApp) remove(id int) {
	a.todos = slices.DeleteFunc(a.todos, func(t todo) bool { return t.id == id })
}

func (a *demoApp) reverse() {
	slices.Reverse(a.todos)
}

func (a *demoApp) left() int {
	n := 0
	for _, t := range a.todos {
		if !t.done {
			n++
		}
	}
	return n
}
