package protocol

import (
	"bytes"
	"io"
	"math"
	"testing"
)

func TestUvarintWidths(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bytes int
	}{
		{"root id", uint64(RootID), 1},
		{"last one-byte id", 127, 1},
		{"first two-byte id", 128, 2},
		{"child index", 16383, 2},
		{"wide child index", 16384, 3},
		{"max node id", math.MaxUint32, 5},
		{"long session seq", 1 << 40, 6},
		{"max seq", math.MaxUint64, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, MaxVarintLen)
			n := EncodeUvarint(buf, tc.value)
			if n != tc.bytes {
				t.Errorf("EncodeUvarint(%d) = %d bytes, want %d", tc.value, n, tc.bytes)
			}

			got, read := DecodeUvarint(buf[:n])
			if read != n || got != tc.value {
				t.Errorf("DecodeUvarint = (%d, %d), want (%d, %d)", got, read, tc.value, n)
			}

			e := NewEncoder()
			e.WriteUvarint(tc.value)
			if !bytes.Equal(e.Bytes(), buf[:n]) {
				t.Errorf("WriteUvarint = %x, want %x", e.Bytes(), buf[:n])
			}
		})
	}
}

func TestDecodeUvarintMalformed(t *testing.T) {
	overflow := bytes.Repeat([]byte{0x80}, MaxVarintLen+1)
	tests := []struct {
		name string
		data []byte
		n    int
		err  error
	}{
		{"empty", nil, -1, io.ErrUnexpectedEOF},
		{"cut after continuation", []byte{0x80, 0x80, 0x80}, -1, io.ErrUnexpectedEOF},
		{"too many bytes", overflow, -2, ErrVarintOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, n := DecodeUvarint(tc.data); n != tc.n {
				t.Errorf("DecodeUvarint read = %d, want %d", n, tc.n)
			}
			if _, err := NewDecoder(tc.data).ReadUvarint(); err != tc.err {
				t.Errorf("ReadUvarint err = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestReadIntBounds(t *testing.T) {
	e := NewEncoder()
	e.WriteInt(math.MaxInt32)
	e.WriteUvarint(math.MaxInt32 + 1)

	d := NewDecoder(e.Bytes())
	if v, err := d.ReadInt(); err != nil || v != math.MaxInt32 {
		t.Errorf("ReadInt = (%d, %v), want MaxInt32", v, err)
	}
	if _, err := d.ReadInt(); err != ErrVarintOverflow {
		t.Errorf("ReadInt past MaxInt32 err = %v, want ErrVarintOverflow", err)
	}
}

func TestReadNodeIDBounds(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(math.MaxUint32)
	e.WriteUvarint(math.MaxUint32 + 1)

	d := NewDecoder(e.Bytes())
	if id, err := readNodeID(d); err != nil || id != NodeID(math.MaxUint32) {
		t.Errorf("readNodeID = (%d, %v), want MaxUint32", id, err)
	}
	if _, err := readNodeID(d); err != ErrVarintOverflow {
		t.Errorf("readNodeID past MaxUint32 err = %v, want ErrVarintOverflow", err)
	}
}
