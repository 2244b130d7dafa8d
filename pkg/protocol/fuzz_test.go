package protocol

import (
	"testing"

	"github.com/vango-dev/domsync/pkg/vdom"
)

// Decoders must never panic, whatever the input.

func FuzzDecodeFrame(f *testing.F) {
	f.Add(NewFrame(FrameOps, []byte{1, 2}).Encode())
	f.Add([]byte{0x02, 0xFF, 0xFF, 0xFF, 0xFF})
	f.Fuzz(func(t *testing.T, data []byte) {
		DecodeFrame(data)
	})
}

func FuzzDecodeOps(f *testing.F) {
	f.Add(EncodeOps(sampleOps()))
	f.Add([]byte{0x00, 0x01, 0x42})
	f.Fuzz(func(t *testing.T, data []byte) {
		of, err := DecodeOps(data)
		if err != nil {
			return
		}
		again, err := DecodeOps(EncodeOps(of))
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if len(again.Ops) != len(of.Ops) {
			t.Fatalf("re-decode changed op count")
		}
	})
}

func FuzzDecodeEvent(f *testing.F) {
	f.Add(EncodeEvent(&EventMessage{Type: "click", Target: 1, Detail: map[string]string{"a": "b"}}))
	f.Fuzz(func(t *testing.T, data []byte) {
		DecodeEvent(data)
	})
}

func FuzzDecodePatches(f *testing.F) {
	f.Add(EncodePatches(&PatchesFrame{Patches: vdom.Diff(nil, listOf("a", "b"))}))
	f.Add(EncodePatches(&PatchesFrame{Patches: vdom.Diff(listOf("a", "b"), listOf("b", "a", "c"))}))
	f.Fuzz(func(t *testing.T, data []byte) {
		DecodePatches(data)
	})
}
