package graph

import (
	"context"

	"modstream/internal/frame"
)

// Sink receives records in dependency order. frame.Encoder is the
// production sink.
type Sink interface {
	Emit(ctx context.Context, rec frame.Record) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, rec frame.Record) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, rec frame.Record) error {
	return f(ctx, rec)
}

// Collect accumulates records in memory.
type Collect struct {
	Records []frame.Record
}

// Emit appends rec.
func (c *Collect) Emit(_ context.Context, rec frame.Record) error {
	c.Records = append(c.Records, rec)
	return nil
}

// Identifiers returns the collected identifiers in emission order.
func (c *Collect) Identifiers() []string {
	ids := make([]string, len(c.Records))
	for i, rec := range c.Records {
		ids[i] = rec.Identifier
	}
	return ids
}
