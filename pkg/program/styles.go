package program

import (
	"reflect"
	"strings"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host"
)

// StyleAttr marks injected <style> elements with the application type they
// belong to.
const StyleAttr = "data-domsync-style"

// Styles tracks the style sheets injected into one document. Each
// application type gets a single <style> element under the target, in
// injection order, however many programs render it.
//
// Styles is not safe for concurrent use; it belongs to the UI loop of its
// document.
type Styles struct {
	target   host.Node
	injected map[reflect.Type]host.Node
	order    []reflect.Type
}

// NewStyles creates a Styles adding its elements under target, usually the
// document's <head>.
func NewStyles(target host.Node) *Styles {
	return &Styles{
		target:   target,
		injected: make(map[reflect.Type]host.Node),
	}
}

// Injected returns the names of the application types whose style sheet
// was injected, in order.
func (s *Styles) Injected() []string {
	out := make([]string, len(s.order))
	for i, t := range s.order {
		out[i] = t.String()
	}
	return out
}

// inject adds the style sheet of app unless its type already has one or
// css is blank. It reports whether the document changed.
func (s *Styles) inject(doc host.Document, app any, css string) (bool, error) {
	if strings.TrimSpace(css) == "" {
		return false, nil
	}
	typ := reflect.TypeOf(app)
	if _, ok := s.injected[typ]; ok {
		return false, nil
	}

	el, err := doc.CreateElement("", "style")
	if err != nil {
		return false, styleError(typ, err)
	}
	if err := doc.SetAttribute(el, StyleAttr, typ.String()); err != nil {
		return false, styleError(typ, err)
	}
	text, err := doc.CreateTextNode(css)
	if err != nil {
		return false, styleError(typ, err)
	}
	if err := doc.InsertChild(el, text, 0); err != nil {
		return false, styleError(typ, err)
	}
	if err := doc.InsertChild(s.target, el, len(s.order)); err != nil {
		return false, styleError(typ, err)
	}
	s.injected[typ] = el
	s.order = append(s.order, typ)
	return true, nil
}

func styleError(typ reflect.Type, err error) error {
	return errors.New("E010").WithDetailf("injecting the style sheet of %s", typ).Wrap(err)
}
