package dom

import (
	"fmt"
	"testing"

	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func benchRows(n int, label string) *vdom.VNode {
	rows := make([]*vdom.VNode, n)
	for i := range rows {
		rows[i] = vdom.Tr(vdom.Key(i), vdom.Td(fmt.Sprintf("%s %d", label, i)))
	}
	return vdom.Table(vdom.Tbody(rows))
}

func BenchmarkMount(b *testing.B) {
	tree := benchRows(1000, "Row")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := memdoc.New()
		p := NewPatcher(doc, doc.Body())
		if err := p.Mount(tree); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApplyAlternating(b *testing.B) {
	trees := [2]*vdom.VNode{benchRows(1000, "Row"), benchRows(1000, "Line")}
	patches := [2][]vdom.Patch{vdom.Diff(trees[1], trees[0]), vdom.Diff(trees[0], trees[1])}
	doc := memdoc.New()
	p := NewPatcher(doc, doc.Body())
	if err := p.Mount(trees[0]); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.Apply(patches[(i+1)%2]); err != nil {
			b.Fatal(err)
		}
	}
}
