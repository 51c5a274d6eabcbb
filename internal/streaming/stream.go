// Package streaming runs a bundle build as a single producer behind an
// io.ReadCloser, so frames reach the consumer while later modules are still
// being resolved.
package streaming

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"modstream/internal/frame"
	"modstream/internal/graph"
)

// Options configures a Stream.
type Options struct {
	// Compression wraps the frame stream in a transport codec.
	Compression frame.Compression
	// Logger receives producer lifecycle events.
	Logger *slog.Logger
}

// Stream is the read side of a running build. Reads block until the producer
// writes the next bytes; the producer blocks until they are read.
type Stream struct {
	ID        string
	StartedAt time.Time

	pr     *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// Set by the producer before done is closed.
	stats *graph.Stats
	err   error
}

// Open starts building entrypoint and returns the stream of its frames.
// Build errors surface from Read once the frames emitted before the failure
// have been consumed.
func Open(ctx context.Context, b *graph.Builder, entrypoint string, opts Options) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	s := &Stream{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		pr:        pr,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("stream", s.ID)

	go func() {
		defer close(s.done)
		defer cancel()

		stats, err := produce(ctx, b, entrypoint, pw, opts.Compression)
		s.stats, s.err = stats, err
		if err != nil {
			logger.Debug("Stream aborted", "entrypoint", entrypoint, "error", err)
		} else {
			logger.Debug("Stream complete",
				"entrypoint", entrypoint,
				"modules", stats.Modules,
				"elapsed", time.Since(s.StartedAt))
		}
		// A nil error closes the pipe with io.EOF.
		_ = pw.CloseWithError(err)
	}()

	return s
}

func produce(ctx context.Context, b *graph.Builder, entrypoint string, w io.Writer, c frame.Compression) (*graph.Stats, error) {
	cw, err := frame.NewCompressedWriter(w, c)
	if err != nil {
		return nil, err
	}
	stats, err := b.Build(ctx, entrypoint, frame.NewEncoder(cw))
	if err != nil {
		return stats, err
	}
	return stats, cw.Close()
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Close stops the producer and releases the pipe. It is safe to call more
// than once and after the stream has been fully read.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.pr.Close()
		<-s.done
	})
	return nil
}

// Wait blocks until the producer has finished and returns its build stats
// and error. The stream must be read to the end or closed, otherwise the
// producer may be blocked on a write.
func (s *Stream) Wait() (*graph.Stats, error) {
	<-s.done
	return s.stats, s.err
}
