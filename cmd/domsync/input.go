package main

import (
	"bytes"
	"io"
	"os"

	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/vdom"
)

// readTree loads a JSON tree from path, "-" meaning stdin. The literal
// "null" is the empty tree.
func readTree(path string, stdin io.Reader) (*vdom.VNode, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.New("E040").WithDetailf("reading %s", path).Wrap(err)
	}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}
	tree, err := vdom.ParseJSON(data)
	if err != nil {
		return nil, errors.New("E040").WithDetailf("parsing %s", path).Wrap(err)
	}
	return tree, nil
}
