package protocol

import (
	stderrors "errors"
	"io"

	"github.com/vango-dev/domsync/internal/errors"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 5

	// MaxPayloadSize bounds a frame payload. A full mount of a large tree
	// travels as one ops frame, so this is the allocation cap.
	MaxPayloadSize = DefaultMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHello   FrameType = 0x00 // Server → client session setup
	FrameEvent   FrameType = 0x01 // Client → server native event
	FrameOps     FrameType = 0x02 // Server → client host mutations of one cycle
	FramePatches FrameType = 0x03 // Encoded patch sequence
	FrameError   FrameType = 0x05 // Error report, either direction
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameEvent:
		return "Event"
	case FrameOps:
		return "Ops"
	case FramePatches:
		return "Patches"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	return ft.String() != "Unknown"
}

// ErrFrameTooLarge is returned for payloads above MaxPayloadSize.
var ErrFrameTooLarge = stderrors.New("protocol: frame payload too large")

// Frame is a protocol frame.
//
// Wire format (5 bytes header + variable payload):
//
//	┌─────────────┬───────────────────────────────┐
//	│ Frame Type  │ Payload Length                │
//	│ (1 byte)    │ (4 bytes, big-endian)         │
//	└─────────────┴───────────────────────────────┘
//	│  Payload (variable length)                  │
//	└─────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Payload []byte
}

// NewFrame creates a frame.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the frame with its header.
func (f *Frame) Encode() []byte {
	e := &Encoder{buf: make([]byte, 0, FrameHeaderSize+len(f.Payload))}
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo writes the frame into e.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteUint32(uint32(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes exactly one frame from data.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	f, err := decodeFrame(d)
	if err == nil {
		err = d.finish()
	}
	if err != nil {
		return nil, malformed(err, "frame")
	}
	return f, nil
}

func decodeFrame(d *Decoder) (*Frame, error) {
	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ft := FrameType(b)
	if !ft.Valid() {
		return nil, errors.New("E031").WithDetailf("frame type 0x%02x", b)
	}
	length, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	raw, err := d.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	payload := make([]byte, len(raw))
	copy(payload, raw)
	return &Frame{Type: ft, Payload: payload}, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft := FrameType(header[0])
	if !ft.Valid() {
		return nil, errors.New("E031").WithDetailf("frame type 0x%02x", header[0])
	}
	length := uint32(header[1])<<24 | uint32(header[2])<<16 | uint32(header[3])<<8 | uint32(header[4])
	if length > MaxPayloadSize {
		return nil, malformed(ErrFrameTooLarge, "frame")
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, malformed(err, "frame payload")
	}
	return &Frame{Type: ft, Payload: payload}, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
