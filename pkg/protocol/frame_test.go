package protocol

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/vango-dev/domsync/internal/errors"
)

func TestFrameRoundTrip(t *testing.T) {
	for _, ft := range []FrameType{FrameHello, FrameEvent, FrameOps, FramePatches, FrameError} {
		t.Run(ft.String(), func(t *testing.T) {
			f := NewFrame(ft, []byte("payload"))
			data := f.Encode()
			if len(data) != FrameHeaderSize+7 {
				t.Fatalf("encoded length = %d", len(data))
			}
			got, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if got.Type != ft || string(got.Payload) != "payload" {
				t.Errorf("got %s %q", got.Type, got.Payload)
			}
		})
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	data := NewFrame(FrameOps, make([]byte, 0x0102)).Encode()
	want := []byte{0x02, 0x00, 0x00, 0x01, 0x02}
	if !bytes.Equal(data[:FrameHeaderSize], want) {
		t.Errorf("header = % x, want % x", data[:FrameHeaderSize], want)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code string
	}{
		{"empty", nil, "E030"},
		{"short header", []byte{0x02, 0x00}, "E030"},
		{"unknown type", []byte{0x04, 0, 0, 0, 0}, "E031"},
		{"truncated payload", []byte{0x02, 0, 0, 0, 3, 'a'}, "E030"},
		{"trailing bytes", []byte{0x02, 0, 0, 0, 1, 'a', 'b'}, "E030"},
		{"too large", []byte{0x02, 0xFF, 0xFF, 0xFF, 0xFF}, "E030"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.data)
			if !errors.IsCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestDecodeFrameCopiesPayload(t *testing.T) {
	data := NewFrame(FrameEvent, []byte{1, 2, 3}).Encode()
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	data[FrameHeaderSize] = 9
	if f.Payload[0] != 1 {
		t.Error("payload aliases the input buffer")
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewFrame(FrameHello, []byte{1})); err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(&buf, NewFrame(FrameOps, nil)); err != nil {
		t.Fatal(err)
	}

	first, err := ReadFrame(&buf)
	if err != nil || first.Type != FrameHello || len(first.Payload) != 1 {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := ReadFrame(&buf)
	if err != nil || second.Type != FrameOps || len(second.Payload) != 0 {
		t.Fatalf("second = %+v, %v", second, err)
	}
	if _, err := ReadFrame(&buf); err == nil {
		t.Error("ReadFrame on empty reader should fail")
	}
}

func TestReadFrameErrors(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0x09, 0, 0, 0, 0})); !errors.IsCode(err, "E031") {
		t.Errorf("unknown type err = %v, want E031", err)
	}
	_, err := ReadFrame(bytes.NewReader([]byte{0x02, 0xFF, 0, 0, 0}))
	if !errors.IsCode(err, "E030") || !stderrors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized err = %v, want E030 wrapping ErrFrameTooLarge", err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0x02, 0, 0, 0, 4, 1})); !errors.IsCode(err, "E030") {
		t.Errorf("truncated err = %v, want E030", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	if FrameType(0x42).Valid() {
		t.Error("0x42 should not be valid")
	}
	if FramePatches.String() != "Patches" {
		t.Errorf("String = %q", FramePatches.String())
	}
}
