package streaming

import "io"

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 16 * 1024

// Chunker re-splits a byte stream into reads of at most a fixed size. It
// reproduces the fragmentation a network transport imposes, which the frame
// decoder must tolerate.
type Chunker struct {
	r         io.Reader
	chunkSize int
	chunks    int
	bytes     int64
}

// NewChunker creates a chunker over r. A non-positive size selects
// DefaultChunkSize.
func NewChunker(r io.Reader, chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{r: r, chunkSize: chunkSize}
}

// Read implements io.Reader.
func (c *Chunker) Read(p []byte) (int, error) {
	if len(p) > c.chunkSize {
		p = p[:c.chunkSize]
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.chunks++
		c.bytes += int64(n)
	}
	return n, err
}

// Chunks returns the number of non-empty reads delivered so far.
func (c *Chunker) Chunks() int {
	return c.chunks
}

// Bytes returns the number of bytes delivered so far.
func (c *Chunker) Bytes() int64 {
	return c.bytes
}
