// Package loader feeds decoded records to an execution environment, either
// as each one arrives or once the whole bundle has been received.
package loader

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"modstream/internal/errors"
	"modstream/internal/frame"
)

// Result is what an environment reports after executing a module.
type Result struct {
	Identifier   string   `json:"identifier" yaml:"identifier"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	External     []string `json:"external,omitempty" yaml:"external,omitempty"`
	// Order lists the modules that ran during this execution, dependencies
	// first. Modules that had already run are not repeated.
	Order []string `json:"order,omitempty" yaml:"order,omitempty"`
}

// Environment registers module text under an identifier and executes
// registered modules.
type Environment interface {
	Register(ctx context.Context, identifier, text string) error
	Execute(ctx context.Context, identifier string) (Result, error)
}

// Mode selects when records are executed.
type Mode string

const (
	// ModeStreaming executes every record as soon as it is registered.
	ModeStreaming Mode = "streaming"
	// ModeBatch registers every record and executes only the last one.
	ModeBatch Mode = "batch"
)

// ParseMode validates a mode string; the empty string means streaming.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStreaming, "":
		return ModeStreaming, nil
	case ModeBatch:
		return ModeBatch, nil
	default:
		return "", fmt.Errorf("unknown load mode %q (want streaming or batch)", s)
	}
}

// Outcome describes a completed load.
type Outcome struct {
	Mode       Mode          `json:"mode" yaml:"mode"`
	Registered []string      `json:"registered" yaml:"registered"`
	Entry      string        `json:"entry" yaml:"entry"`
	Result     Result        `json:"result" yaml:"result"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader drives an Environment from a record sequence.
type Loader struct {
	env    Environment
	mode   Mode
	logger *slog.Logger
}

// New creates a loader. An empty mode means streaming.
func New(env Environment, mode Mode, opts ...Option) *Loader {
	if mode == "" {
		mode = ModeStreaming
	}
	l := &Loader{env: env, mode: mode, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load consumes seq. The last record is the entrypoint and its execution
// result is the outcome's result. A decode error aborts the load; records
// registered before it stay registered. The partial outcome is returned
// alongside any error.
func (l *Loader) Load(ctx context.Context, seq iter.Seq2[frame.Record, error]) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Mode: l.mode}

	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if err := l.env.Register(ctx, rec.Identifier, rec.Text); err != nil {
			return out, err
		}
		out.Registered = append(out.Registered, rec.Identifier)
		out.Entry = rec.Identifier
		l.logger.Debug("Registered module", "id", rec.Identifier, "bytes", len(rec.Text))

		if l.mode == ModeStreaming {
			res, err := l.execute(ctx, rec.Identifier)
			if err != nil {
				return out, err
			}
			out.Result = res
		}
	}

	if len(out.Registered) == 0 {
		return out, errors.Errorf(errors.EmptyBundle, "bundle contained no modules")
	}

	if l.mode == ModeBatch {
		res, err := l.execute(ctx, out.Entry)
		if err != nil {
			return out, err
		}
		out.Result = res
	}

	out.Elapsed = time.Since(start)
	l.logger.Debug("Load complete", "mode", l.mode, "modules", len(out.Registered), "entry", out.Entry, "elapsed", out.Elapsed)
	return out, nil
}

func (l *Loader) execute(ctx context.Context, id string) (Result, error) {
	res, err := l.env.Execute(ctx, id)
	if err != nil {
		return Result{}, err
	}
	l.logger.Debug("Executed module", "id", id, "ran", len(res.Order))
	return res, nil
}
