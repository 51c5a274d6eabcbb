package frame

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"

	"modstream/internal/errors"
)

// flusher matches bufio.Writer and the gzip/zstd writers.
type flusher interface {
	Flush() error
}

// Encoder writes records as frames. It satisfies graph.Sink.
type Encoder struct {
	w       io.Writer
	header  [HeaderSize]byte
	frames  int
	written int64
}

// NewEncoder creates an encoder writing to w. If w can be flushed, it is
// flushed after every frame so each record leaves the process immediately.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one frame.
func (e *Encoder) Encode(rec Record) error {
	if uint64(len(rec.Identifier)) > maxLength || uint64(len(rec.Text)) > maxLength {
		return errors.Errorf(errors.FrameTooLarge,
			"record %s does not fit a frame (%d identifier bytes, %d text bytes)",
			truncate(rec.Identifier), len(rec.Identifier), len(rec.Text))
	}

	binary.LittleEndian.PutUint32(e.header[0:4], uint32(len(rec.Identifier)))
	binary.LittleEndian.PutUint32(e.header[4:8], uint32(len(rec.Text)))

	if _, err := e.w.Write(e.header[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, rec.Identifier); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, rec.Text); err != nil {
		return err
	}

	e.frames++
	e.written += int64(rec.Size())
	return e.flush()
}

// Emit encodes rec unless ctx is already done.
func (e *Encoder) Emit(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.Encode(rec)
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int {
	return e.frames
}

// BytesWritten returns the number of uncompressed bytes written so far.
func (e *Encoder) BytesWritten() int64 {
	return e.written
}

func (e *Encoder) flush() error {
	switch f := e.w.(type) {
	case flusher:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

func truncate(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
