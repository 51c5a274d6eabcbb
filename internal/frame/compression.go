package frame

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the transport codec wrapped around a frame stream.
type Compression string

const (
	// CompressionNone sends frames as they are.
	CompressionNone Compression = "none"
	// CompressionGzip wraps the stream in gzip.
	CompressionGzip Compression = "gzip"
	// CompressionZstd wraps the stream in zstd.
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. The empty string and
// "identity" mean no compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "identity":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unsupported compression %q (want none, gzip or zstd)", s)
	}
}

// ContentEncoding returns the HTTP Content-Encoding token, empty for none.
func (c Compression) ContentEncoding() string {
	if c == CompressionNone {
		return ""
	}
	return string(c)
}

// Negotiate picks the best codec from an Accept-Encoding header. zstd is
// preferred over gzip; tokens with q=0 are ignored.
func Negotiate(acceptEncoding string) Compression {
	var gz bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q := strings.TrimSpace(params); q == "q=0" || q == "q=0.0" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(token)) {
		case "zstd":
			return CompressionZstd
		case "gzip":
			gz = true
		}
	}
	if gz {
		return CompressionGzip
	}
	return CompressionNone
}

type codecWriter interface {
	io.WriteCloser
	Flush() error
}

// CompressedWriter compresses a frame stream while keeping it flushable,
// so an Encoder on top still delivers each frame as soon as it is written.
type CompressedWriter struct {
	dst   io.Writer
	codec codecWriter
}

// NewCompressedWriter wraps dst with the codec c.
func NewCompressedWriter(dst io.Writer, c Compression) (*CompressedWriter, error) {
	w := &CompressedWriter{dst: dst}
	switch c {
	case CompressionNone, "":
	case CompressionGzip:
		w.codec = gzip.NewWriter(dst)
	case CompressionZstd:
		enc, err := zstd.NewWriter(dst, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		w.codec = enc
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
	return w, nil
}

// Write implements io.Writer.
func (w *CompressedWriter) Write(p []byte) (int, error) {
	if w.codec == nil {
		return w.dst.Write(p)
	}
	return w.codec.Write(p)
}

// Flush pushes buffered data through the codec and flushes dst when it
// supports flushing.
func (w *CompressedWriter) Flush() error {
	if w.codec != nil {
		if err := w.codec.Flush(); err != nil {
			return err
		}
	}
	switch f := w.dst.(type) {
	case flusher:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

// Close finishes the compressed stream. It does not close dst.
func (w *CompressedWriter) Close() error {
	if w.codec != nil {
		if err := w.codec.Close(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// NewDecompressedReader undoes the codec c on r.
func NewDecompressedReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone, "":
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}
