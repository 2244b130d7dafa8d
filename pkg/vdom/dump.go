package vdom

import (
	"strconv"
	"strings"

	tp "github.com/xlab/treeprint"
)

// Dump renders the tree as an indented outline, one node per line, below
// a "." line standing for the mount container.
func Dump(v *VNode) string {
	root := tp.New()
	if v != nil {
		dumpNode(root, v)
	}
	return root.String()
}

func dumpNode(branch tp.Tree, v *VNode) {
	if len(v.Children) == 0 {
		branch.AddNode(label(v))
		return
	}
	sub := branch.AddBranch(label(v))
	for _, c := range v.Children {
		if c != nil {
			dumpNode(sub, c)
		}
	}
}

// label describes a node with its attributes, listeners shown by event name.
func label(v *VNode) string {
	switch v.Kind {
	case KindText:
		return strconv.Quote(v.Text)
	case KindComment:
		return "<!--" + v.Text + "-->"
	case KindFragment:
		return "<>"
	}
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(v.Tag)
	if v.Key != "" {
		b.WriteString(" key=")
		b.WriteString(strconv.Quote(v.Key))
	}
	for _, a := range v.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		switch a.Value.Kind {
		case ValueListener:
			b.WriteString("=ƒ")
		case ValueBool:
			if !a.Value.Bool {
				b.WriteString("=false")
			}
		default:
			b.WriteByte('=')
			b.WriteString(strconv.Quote(a.Value.String()))
		}
	}
	b.WriteByte('>')
	return b.String()
}
