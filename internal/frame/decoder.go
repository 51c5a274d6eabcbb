package frame

import (
	"encoding/binary"
	"io"
	"iter"
	"strconv"
	"unicode/utf8"

	"modstream/internal/errors"
)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxPayload limits the identifier and text length of a single frame.
// A non-positive limit disables the check.
func WithMaxPayload(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxPayload = n
	}
}

// Decoder reconstructs records from a byte stream regardless of how the
// stream is split into reads.
type Decoder struct {
	r          io.Reader
	maxPayload int
	header     [HeaderSize]byte
	frames     int
	err        error
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{r: r, maxPayload: DefaultMaxPayload}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next record. It returns io.EOF when the stream ends
// cleanly. Once Next has failed, every later call returns the same error.
func (d *Decoder) Next() (Record, error) {
	if d.err != nil {
		return Record{}, d.err
	}
	rec, err := d.next()
	if err != nil {
		d.err = err
		return Record{}, err
	}
	d.frames++
	return rec, nil
}

// All returns the records as a single-use sequence. The sequence stops after
// the first error, which is yielded with a zero record; a clean end of
// stream yields no error.
func (d *Decoder) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Frames returns the number of records decoded so far.
func (d *Decoder) Frames() int {
	return d.frames
}

func (d *Decoder) next() (Record, error) {
	// A stream that ends anywhere inside the first length field ends the
	// sequence: no identifier length was ever announced.
	if n, err := io.ReadFull(d.r, d.header[0:4]); err != nil {
		if err == io.EOF || (err == io.ErrUnexpectedEOF && n > 0) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	if _, err := io.ReadFull(d.r, d.header[4:8]); err != nil {
		return Record{}, d.truncated("text length", err)
	}

	idLen := binary.LittleEndian.Uint32(d.header[0:4])
	textLen := binary.LittleEndian.Uint32(d.header[4:8])

	id, err := d.payload("identifier", idLen)
	if err != nil {
		return Record{}, err
	}
	text, err := d.payload("text", textLen)
	if err != nil {
		return Record{}, err
	}
	return Record{Identifier: id, Text: text}, nil
}

// payload collects exactly n bytes and only then validates them as UTF-8,
// so multi-byte sequences split across reads decode correctly.
func (d *Decoder) payload(field string, n uint32) (string, error) {
	if d.maxPayload > 0 && uint64(n) > uint64(d.maxPayload) {
		return "", errors.Errorf(errors.FrameTooLarge,
			"frame %d: %s length %d exceeds limit %d", d.frames, field, n, d.maxPayload)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", d.truncated(field, err)
	}
	if !utf8.Valid(buf) {
		return "", errors.Errorf(errors.InvalidUTF8, "frame %d: %s is not valid UTF-8", d.frames, field)
	}
	return string(buf), nil
}

func (d *Decoder) truncated(field string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.NewBundleError(errors.TruncatedFrame,
			"stream ended inside the "+field+" of frame "+strconv.Itoa(d.frames), err)
	}
	return err
}
