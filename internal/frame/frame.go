// Package frame implements the length-prefixed wire format that carries
// module records between a producer and a progressive loader.
//
// Every record is one frame:
//
//	u32le identifierLength | u32le textLength | identifier bytes | text bytes
//
// Frames are concatenated with no magic, version, checksum or end marker; a
// stream is complete when it ends on a frame boundary.
package frame

import "math"

// HeaderSize is the size of the two length fields that open every frame.
const HeaderSize = 8

// DefaultMaxPayload bounds a single identifier or text when decoding.
const DefaultMaxPayload = 64 << 20

// maxLength is the largest payload a u32 length field can describe.
const maxLength = math.MaxUint32

// Record is one module as carried on the wire: its canonical identifier and
// its rewritten text.
type Record struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Text       string `json:"text" yaml:"text"`
}

// Size returns the number of bytes the record occupies on the wire.
func (r Record) Size() int {
	return HeaderSize + len(r.Identifier) + len(r.Text)
}
