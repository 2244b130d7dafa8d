package protocol

import "github.com/vango-dev/domsync/internal/errors"

// ProtocolVersion is the wire protocol version spoken by this package.
const ProtocolVersion uint8 = 1

// Hello opens a session. The server sends it before the first ops frame.
type Hello struct {
	Version   uint8
	Session   string
	FrameRate int
}

// EncodeHello encodes a Hello.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version)
	e.WriteString(h.Session)
	e.WriteInt(h.FrameRate)
	return e.Bytes()
}

// DecodeHello decodes a Hello and checks its version.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	h := &Hello{}
	var err error
	if h.Version, err = d.ReadByte(); err == nil {
		if h.Session, err = d.ReadString(); err == nil {
			if h.FrameRate, err = d.ReadInt(); err == nil {
				err = d.finish()
			}
		}
	}
	if err != nil {
		return nil, malformed(err, "hello")
	}
	if h.Version != ProtocolVersion {
		return nil, errors.New("E030").WithDetailf("protocol version %d, want %d", h.Version, ProtocolVersion)
	}
	return h, nil
}
