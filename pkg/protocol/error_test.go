package protocol

import (
	"testing"

	"github.com/vango-dev/domsync/internal/errors"
)

func TestErrorMessageRoundTrip(t *testing.T) {
	for _, em := range []*ErrorMessage{
		NewError(ErrUnknownTarget, "node 12 is gone"),
		NewFatalError(ErrInvalidFrame, "bad header"),
		NewError(ErrRenderFailed, ""),
	} {
		out, err := DecodeErrorMessage(EncodeErrorMessage(em))
		if err != nil {
			t.Fatalf("DecodeErrorMessage: %v", err)
		}
		if *out != *em {
			t.Errorf("got %+v, want %+v", out, em)
		}
	}
}

func TestErrorMessageError(t *testing.T) {
	if got := NewError(ErrInvalidEvent, "x").Error(); got != "InvalidEvent: x" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewFatalError(ErrServerError, "down").Error(); got != "fatal: ServerError: down" {
		t.Errorf("Error() = %q", got)
	}
	if ErrorCode(0x7777).String() != "Unknown" {
		t.Error("unknown code should stringify as Unknown")
	}
}

func TestDecodeErrorMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"code overflow", []byte{0x80, 0x80, 0x04, 0x00, 0x00}},
		{"bad fatal flag", []byte{0x01, 0x00, 0x05}},
		{"trailing", []byte{0x01, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeErrorMessage(tt.data); !errors.IsCode(err, "E030") {
				t.Errorf("err = %v, want E030", err)
			}
		})
	}
}
