package protocol

import stderrors "errors"

// MaxVNodeDepth limits the nesting depth of decoded trees.
const MaxVNodeDepth = 256

// MaxPathLength limits the length of a decoded node path.
const MaxPathLength = MaxVNodeDepth

// ErrMaxDepthExceeded is returned for trees nested deeper than
// MaxVNodeDepth.
var ErrMaxDepthExceeded = stderrors.New("protocol: maximum nesting depth exceeded")

// depthContext tracks the depth of a recursive decode.
type depthContext struct {
	current int
	max     int
}

func newDepthContext(max int) *depthContext {
	return &depthContext{max: max}
}

// enter increments the depth, failing once the limit is reached.
func (dc *depthContext) enter() error {
	if dc.current >= dc.max {
		return ErrMaxDepthExceeded
	}
	dc.current++
	return nil
}

func (dc *depthContext) leave() {
	dc.current--
}
