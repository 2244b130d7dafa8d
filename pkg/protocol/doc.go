// Package protocol implements the binary wire protocol between a domsync
// server and a thin client that owns the real document.
//
// The server renders and diffs; the client only executes host mutations
// and forwards native events. One render cycle produces one ops frame.
//
// # Wire Format
//
// All messages are framed with a 5-byte header:
//
//	┌─────────────┬───────────────────────────────┐
//	│ Frame Type  │ Payload Length                │
//	│ (1 byte)    │ (4 bytes, big-endian)         │
//	└─────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): protocol version and session
//   - FrameEvent (0x01): client → server native events
//   - FrameOps (0x02): server → client host mutations
//   - FramePatches (0x03): an encoded vdom patch sequence
//   - FrameError (0x05): error report
//
// # Encoding
//
//   - Varint: compact encoding for small integers (protobuf-style)
//   - ZigZag: signed integers encoded as unsigned varints
//   - Length-prefixed: strings prefixed with a varint length
//   - Big-endian: fixed-width integers and IEEE 754 floats
//
// # Host Ops
//
// Remote nodes are named by NodeID; 0 is the mount container. A batch
// reads top to bottom:
//
//	CreateElement #1 <ul>
//	CreateText #2 "a"
//	InsertChild #2 → #1 @0
//	InsertChild #1 → #0 @0
//	Listen #0 click
//
// Decoders reject malformed input with E030 and unknown opcodes with
// E031; nesting and allocation sizes are bounded.
package protocol
